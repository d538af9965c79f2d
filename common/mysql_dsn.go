package common

import (
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gosqlmysql "github.com/go-sql-driver/mysql"
)

// NormalizeMySQLDSN accepts either a go-sql-driver DSN or a mysql:// URL and
// returns a DSN with parseTime enabled. The location defaults to UTC unless loc
// is given explicitly.
func NormalizeMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(strings.ToLower(dsn), "mysql://") {
		converted, err := mysqlURLToDSN(dsn)
		if err != nil {
			return "", err
		}
		dsn = converted
	}

	cfg, err := gosqlmysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	if !hasLocParam(dsn) {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

func mysqlURLToDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "parse mysql url")
	}
	if u.Host == "" {
		return "", errors.New("mysql url has no host")
	}

	cfg := gosqlmysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	dsn := cfg.FormatDSN()
	if u.RawQuery != "" {
		if strings.Contains(dsn, "?") {
			dsn += "&" + u.RawQuery
		} else {
			dsn += "?" + u.RawQuery
		}
	}
	return dsn, nil
}

func hasLocParam(dsn string) bool {
	_, query, ok := strings.Cut(dsn, "?")
	if !ok {
		return false
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return false
	}
	return values.Has("loc")
}
