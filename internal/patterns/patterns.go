// Package patterns holds the static catalog of suspicious request
// signatures and the classifier that runs on every non-blocked request.
package patterns

import (
	"strings"

	"github.com/edgegate/edgegate/internal/models"
)

// SuspiciousPaths are path fragments commonly probed by scanners.
var SuspiciousPaths = []string{
	".env",
	".git/config",
	".git/HEAD",
	".git/credentials",
	"admin/config.php",
	"phpinfo.php",
	"info.php",
	"phpinfo",
	"config.json",
	"client_secrets.json",
	"appsettings.json",
	"actuator/env",
	"actuator/health",
	"debug/default/view",
	"v2/_catalog",
	"_all_dbs",
	"server-status",
	"owa/auth/logon.aspx",
	"ecp/Current/exporttool/",
	"+CSCOL+/",
	"+CSCOE+/",
	"cgi-bin/luci/",
	"vendor/phpunit/phpunit/src/Util/PHP/eval-stdin.php",
	"_profiler/phpinfo",
	"web/debug/default/view",
	".well-known/security.txt",
	"sitemap.xml",
	"robots.txt",
	"login",
	"login.action",
	"admin",
	"wp-admin",
	"backup",
	"backup.zip",
	"dump.sql",
	"database.sql",
	"config.php",
	"settings.php",
	"wp-config.php",
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// SuspiciousExtensions are file suffixes that should never be requested
// from the document root.
var SuspiciousExtensions = []string{
	".env", ".bak", ".old", ".backup", ".dist", ".example",
	".pem", ".key", ".cert", ".crt", ".pfx", ".p12",
	".sql", ".dump", ".back", ".save",
	".log", ".txt", ".ini", ".conf", ".cfg",
	".yml", ".yaml", ".json", ".xml",
	".php", ".asp", ".aspx", ".jsp", ".py", ".rb",
}

// SuspiciousParams are query-string fragments associated with injection
// and script-execution attempts.
var SuspiciousParams = []string{
	"cmd", "exec", "system", "eval", "shell", "bash",
	"php", "python", "perl", "ruby", "javascript",
	"union", "select", "insert", "update", "delete",
	"drop", "create", "alter", "truncate",
	"script", "alert", "document.cookie",
	"onload", "onerror", "onclick", "onmouseover",
}

// SQLInjectionPatterns are checked against the query string after the
// generic catalogs.
var SQLInjectionPatterns = []string{
	"union select",
	"select * from",
	"insert into",
	"drop table",
}

// Match is the classifier outcome for one request.
type Match struct {
	Matched    bool
	AttackType string
	Reason     string
}

// Catalog classifies requests against the pattern sets. The sets are
// normalized to lower case once at construction; Classify itself never
// allocates new catalogs.
type Catalog struct {
	paths      []string
	extensions []string
	params     []string
	sql        []string
}

// NewCatalog builds the default catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		paths:      lowered(SuspiciousPaths),
		extensions: lowered(SuspiciousExtensions),
		params:     lowered(SuspiciousParams),
		sql:        lowered(SQLInjectionPatterns),
	}
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Classify checks path and query string against the catalog. Precedence:
// suspicious path, suspicious extension, suspicious parameter, directory
// traversal, SQL injection. First match wins.
func (c *Catalog) Classify(path, query string) Match {
	p := strings.ToLower(path)
	q := strings.ToLower(query)

	for _, pattern := range c.paths {
		if strings.Contains(p, pattern) {
			return Match{
				Matched:    true,
				AttackType: models.AttackScanning,
				Reason:     "Suspicious path pattern: " + pattern,
			}
		}
	}

	for _, ext := range c.extensions {
		if strings.HasSuffix(p, ext) {
			return Match{
				Matched:    true,
				AttackType: models.AttackScanning,
				Reason:     "Suspicious file extension: " + ext,
			}
		}
	}

	for _, param := range c.params {
		if strings.Contains(q, param) {
			return Match{
				Matched:    true,
				AttackType: models.AttackScanning,
				Reason:     "Suspicious parameter: " + param,
			}
		}
	}

	if strings.Contains(p, "..") {
		return Match{
			Matched:    true,
			AttackType: models.AttackDirectoryTraversal,
			Reason:     "Directory traversal attempt",
		}
	}

	for _, pattern := range c.sql {
		if strings.Contains(q, pattern) {
			return Match{
				Matched:    true,
				AttackType: models.AttackSQLInjection,
				Reason:     "SQL injection pattern: " + pattern,
			}
		}
	}

	return Match{}
}
