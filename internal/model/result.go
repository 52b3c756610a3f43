package model

// QueryResult holds the rows of an executed SELECT, keyed by column name,
// with the column order reported by the driver.
type QueryResult struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}
