// Package all is a meta-package that imports every store implementation so
// importers get the full registry with one underscore import.
package all

import (
	_ "github.com/GreenledgerHQ/cerberus/lib/store/bbolt"
	_ "github.com/GreenledgerHQ/cerberus/lib/store/memory"
	_ "github.com/GreenledgerHQ/cerberus/lib/store/valkey"
)
