package config

import (
	"strings"

	"github.com/spf13/pflag"
)

// ConfigFlag names the flag that points at a JSON or YAML config file.
const ConfigFlag = "config"

// RegisterFlags adds one flag per config key to fs. Flag names are the koanf
// keys with dots and underscores turned into dashes, e.g. --database-dsn.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()

	fs.StringP(ConfigFlag, "c", "", "path to a .json, .yaml or .yml config file")

	fs.String("http-addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("http-prefix", d.HTTP.Prefix, "path prefix for the HTTP API")
	fs.Bool("http-cors", d.HTTP.CORS, "enable permissive CORS")
	fs.String("grpc-addr", d.GRPC.Addr, "gRPC health listen address (empty disables)")

	fs.StringP("database-dsn", "d", d.Database.DSN, "PostgreSQL DSN")
	fs.Duration("database-connect-timeout", d.Database.ConnectTimeout, "how long to wait for the database at startup")

	fs.StringP("jwt-secret", "s", d.JWT.Secret, "HS256 signing secret")
	fs.Duration("jwt-expires-in", d.JWT.ExpiresIn, "access token lifetime")

	fs.Int("auth-bcrypt-cost", d.Auth.BcryptCost, "bcrypt cost factor")
	fs.Float64("auth-rate-limit", d.Auth.RateLimit, "login/register requests per second per client IP")
	fs.Int("auth-rate-burst", d.Auth.RateBurst, "login/register burst per client IP")

	fs.String("s3-root-user", d.S3.RootUser, "S3 access key")
	fs.String("s3-root-password", d.S3.RootPassword, "S3 secret key")
	fs.String("s3-bucket", d.S3.Bucket, "S3 bucket for post covers")
	fs.String("s3-region", d.S3.Region, "S3 region")
	fs.String("s3-base-endpoint", d.S3.BaseEndpoint, "S3 base endpoint")

	fs.String("log-level", d.Log.Level, "debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "json or text")
}

// flagKey maps "database-connect-timeout" to "database.connect_timeout".
func flagKey(name string) string {
	section, rest, ok := strings.Cut(name, "-")
	if !ok {
		return ""
	}
	return section + "." + strings.ReplaceAll(rest, "-", "_")
}

// envKey maps "GOPHBLOG_DATABASE_CONNECT_TIMEOUT" to "database.connect_timeout".
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.Replace(name, "_", ".", 1)
}
