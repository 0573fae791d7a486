// Package all registers every warehouse backend with the factory.
// Blank-import it from the binary; config selects which backend runs.
package all

import (
	_ "github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse/mssql"
	_ "github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse/postgres"
	_ "github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse/sqlite"
)
