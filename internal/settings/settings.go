package settings

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment variable monitorbot reads.
const EnvPrefix = "MONITORBOT_"

var Settings *AppSettings

type AppSettings struct {
	// authorization secret required to scrape /metrics and /status
	Secret string
	// http server port to bind to
	Port string
	// github api tokens to collect rate limit statistics for
	RateLimitTokens []string
	// rate limit stats refresh interval
	RateLimitRefresh time.Duration
	// github api token used to query gha runner status (repo scope)
	GithubToken string
	// owner/repo slugs whose gha runners are tracked
	RunnersRepos []string
	// gha runner status refresh interval
	RunnersRefresh time.Duration
	// sqlite dsn for the refresh observation store
	SQLiteDatabase string
}

func NewSettings() (*AppSettings, error) {
	secret, err := requireEnv("SECRET")
	if err != nil {
		return nil, err
	}
	rateLimitTokens, err := requireEnv("RATE_LIMIT_TOKENS")
	if err != nil {
		return nil, err
	}
	githubToken, err := requireEnv("GITHUB_TOKEN")
	if err != nil {
		return nil, err
	}
	runnersRepos, err := requireEnv("RUNNERS_REPOS")
	if err != nil {
		return nil, err
	}
	rateLimitRefresh, err := getEnvSeconds("GH_RATE_LIMIT_STATS_REFRESH", 120)
	if err != nil {
		return nil, err
	}
	runnersRefresh, err := getEnvSeconds("GHA_RUNNERS_REFRESH", 120)
	if err != nil {
		return nil, err
	}

	settings := AppSettings{
		Secret:           secret,
		Port:             getEnvOrDefault("PORT", ":3001"),
		RateLimitTokens:  splitList(rateLimitTokens),
		RateLimitRefresh: rateLimitRefresh,
		GithubToken:      githubToken,
		RunnersRepos:     splitList(runnersRepos),
		RunnersRefresh:   runnersRefresh,
		SQLiteDatabase:   getEnvOrDefault("DB_PATH", "file:.///monitorbot.sqlite"),
	}
	if !strings.HasPrefix(settings.Port, ":") {
		settings.Port = ":" + settings.Port
	}
	return &settings, nil
}

func (as *AppSettings) SQLiteDbString(readonly bool) string {
	params := make(url.Values)
	params.Add("_journal_mode", "WAL")
	params.Add("_busy_timeout", "5000")
	params.Add("_synchronous", "NORMAL")
	params.Add("_cache_size", "-20000")
	params.Add("_foreign_keys", "ON")
	if readonly {
		params.Add("mode", "ro")
	} else {
		params.Add("_txlock", "IMMEDIATE")
		params.Add("mode", "rwc")
	}

	return as.SQLiteDatabase + "?" + params.Encode()
}

func getEnvOrDefault(key, defaultValue string) string {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return defaultValue
	}
	return value
}

func requireEnv(key string) (string, error) {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || value == "" {
		return "", fmt.Errorf("missing environment variable %s%s", EnvPrefix, key)
	}
	return value, nil
}

func getEnvSeconds(key string, defaultSeconds int64) (time.Duration, error) {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return time.Duration(defaultSeconds) * time.Second, nil
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"the %s%s environment variable has invalid content: %w", EnvPrefix, key, err,
		)
	}
	return time.Duration(seconds) * time.Second, nil
}

func splitList(s string) []string {
	split := strings.Split(s, ",")
	values := make([]string, 0, len(split))
	for _, v := range split {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// ReadDotenv loads a local .env file into the process environment.
// Containers configure monitorbot through the environment directly,
// so a missing file is not an error.
func ReadDotenv(path string) {
	re := regexp.MustCompile(`^[^0-9][A-Z0-9_]+=.+$`)
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) > 0 && line[0] != '#' && re.Match(line) {
			split := strings.Split(string(line), "=")
			name := strings.TrimSpace(split[0])
			value := strings.TrimSpace(split[1])
			value = strings.Trim(value, `"`)
			os.Setenv(name, value)
		}
	}
}
