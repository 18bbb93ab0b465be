package domain

// MigrationReport summarizes a bulk upload of the static bundle.
type MigrationReport struct {
	Total    int      `json:"total"`
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}
