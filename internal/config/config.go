package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The MySQL fields are only required when
// DBDriver is "mysql"; SQLite needs nothing but a file path.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBDriver     string // "mysql" (default) or "sqlite"
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    SQLitePath   string // SQLite database file
    AutoMigrate  bool   // create missing tables at startup
    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time‑to‑live in minutes
    BcryptCost   int    // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    c := Config{
        Env:          envStr("APP_ENV", "dev"),                      // environment (dev/test/prod)
        Port:         must("APP_PORT"),                              // port to bind the HTTP server
        DBDriver:     envStr("DB_DRIVER", "mysql"),                  // database engine
        SQLitePath:   envStr("SQLITE_PATH", "data/seating.db"),      // sqlite file
        AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),             // run schema migration on boot
        JWTSecret:    must("JWT_SECRET"),                            // secret used for signing JWTs
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),               // TTL for access tokens in minutes
        BcryptCost:   envInt("BCRYPT_COST", 12),                     // bcrypt cost factor
    }
    if c.DBDriver == "mysql" {
        c.DBUser = must("DB_USER")     // database user
        c.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
        c.DBHost = must("DB_HOST")     // database host
        c.DBPort = must("DB_PORT")     // database port
        c.DBName = must("DB_NAME")     // database name
    }
    return c
}

// LoadDatabase reads only what is needed to reach the database and hash
// passwords.  The admin CLI uses it so it can run without the HTTP
// settings.
func LoadDatabase() Config {
    c := Config{
        Env:        envStr("APP_ENV", "dev"),
        DBDriver:   envStr("DB_DRIVER", "mysql"),
        SQLitePath: envStr("SQLITE_PATH", "data/seating.db"),
        BcryptCost: envInt("BCRYPT_COST", 12),
    }
    if c.DBDriver == "mysql" {
        c.DBUser = must("DB_USER")
        c.DBPass = os.Getenv("DB_PASS")
        c.DBHost = must("DB_HOST")
        c.DBPort = must("DB_PORT")
        c.DBName = must("DB_NAME")
    }
    return c
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
