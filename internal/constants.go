package internal

const (
	DotEnvPath    = "./.env"
	MigrationsDir = "migrations"

	// UserAgent identifies monitorbot to the GitHub API.
	UserAgent = "https://github.com/rust-lang/monitorbot (infra@rust-lang.org)"

	DBTimestampLayout = "2006-01-02 15:04:05"
)
