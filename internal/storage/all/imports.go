// Package all registers every built-in storage backend. Import it for side
// effects from the wiring layer:
//
//	import _ "bggetl/internal/storage/all"
package all

import (
	_ "bggetl/internal/storage/postgres"
	_ "bggetl/internal/storage/sqlite"
)
