// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects registers the "postgres", "mssql", "mysql"
// and "sqlite" kinds together with their SQL dialects:
//
//	import _ "github.com/VisionKernel/Centerspoke/internal/storage/all"
//
//	err := storage.With(ctx, storage.Config{Kind: "mysql", DSN: dsn}, func(repo storage.Repository) error {
//	    ...
//	})
//
// A binary that needs only a subset can import the backend packages directly.
package all

import (
	_ "github.com/VisionKernel/Centerspoke/internal/storage/mssql"
	_ "github.com/VisionKernel/Centerspoke/internal/storage/mysql"
	_ "github.com/VisionKernel/Centerspoke/internal/storage/postgres"
	_ "github.com/VisionKernel/Centerspoke/internal/storage/sqlite"
)
