package services

// SQL text built by the services. Table names are always passed through
// pgdal.TableRef.Sanitize before formatting.

const (
	// queryCopyCSV streams a headered, comma-delimited CSV file.
	// %s: sanitized schema-qualified table name
	queryCopyCSV = `COPY %s FROM STDIN WITH (FORMAT csv, HEADER true, DELIMITER ',')`

	// querySelectAll materializes a whole table in storage order.
	// %s: sanitized schema-qualified table name
	querySelectAll = `SELECT * FROM %s`

	// queryInsertRow inserts one row.
	// %s: sanitized table name, %s: sanitized column list, %s: $1..$n
	queryInsertRow = `INSERT INTO %s (%s) VALUES (%s)`
)
