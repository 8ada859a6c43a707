// Package detector locates web server access logs when no path is given.
package detector

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrNoLogs is returned when no access log can be found.
var ErrNoLogs = errors.New("no access log files found")

// LogFile represents a detected access log file.
type LogFile struct {
	Path       string
	ServerName string // ServerName/server_name from config, if available
	Size       int64
}

// Detector searches well known locations and server configs for access logs.
type Detector struct {
	LogPatterns []string
	ConfigPaths []string
	// LogDir replaces ${APACHE_LOG_DIR} in Apache configs.
	LogDir string
}

// Default returns a Detector for the standard Apache and nginx layouts.
func Default() *Detector {
	return &Detector{
		LogPatterns: []string{
			"/var/log/apache2/access.log",
			"/var/log/apache2/*access.log",
			"/var/log/httpd/access_log",
			"/var/log/httpd/*access_log",
			"/usr/local/apache2/logs/access_log",
			"/var/log/nginx/access.log",
			"/var/log/nginx/*.log",
		},
		ConfigPaths: []string{
			"/etc/apache2/apache2.conf",
			"/etc/httpd/conf/httpd.conf",
			"/usr/local/apache2/conf/httpd.conf",
			"/etc/nginx/nginx.conf",
		},
		LogDir: "/var/log/apache2",
	}
}

// Detect returns every existing access log found by globbing LogPatterns and
// reading log directives from ConfigPaths and their sites-enabled/conf.d includes.
func (d *Detector) Detect() ([]LogFile, error) {
	var logs []LogFile
	seen := make(map[string]bool)

	add := func(path, serverName string) {
		if seen[path] {
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		seen[path] = true
		logs = append(logs, LogFile{Path: path, ServerName: serverName, Size: info.Size()})
	}

	for _, pattern := range d.LogPatterns {
		matches, _ := filepath.Glob(pattern)
		for _, path := range matches {
			if strings.Contains(filepath.Base(path), "error") {
				continue
			}
			add(path, "")
		}
	}

	for _, configPath := range d.configFiles() {
		for path, serverName := range d.parseConfigFile(configPath) {
			add(path, serverName)
		}
	}

	if len(logs) == 0 {
		return nil, ErrNoLogs
	}
	return logs, nil
}

// configFiles expands ConfigPaths with the usual include directories.
func (d *Detector) configFiles() []string {
	var files []string
	for _, configPath := range d.ConfigPaths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		files = append(files, configPath)

		dir := filepath.Dir(configPath)
		for _, pattern := range []string{
			filepath.Join(dir, "sites-enabled", "*"),
			filepath.Join(dir, "conf.d", "*.conf"),
			filepath.Join(dir, "conf-enabled", "*.conf"),
		} {
			matches, _ := filepath.Glob(pattern)
			for _, include := range matches {
				if info, err := os.Stat(include); err == nil && !info.IsDir() {
					files = append(files, include)
				}
			}
		}
	}
	return files
}

var (
	logDirectiveRegex  = regexp.MustCompile(`^(?:CustomLog|TransferLog|access_log)\s+(?:"([^"]+)"|([^\s;]+))`)
	nameDirectiveRegex = regexp.MustCompile(`^(?:ServerName|server_name)\s+([^\s;]+)`)
)

// parseConfigFile extracts access log paths, keyed by path, with the server name in scope.
func (d *Detector) parseConfigFile(path string) map[string]string {
	logs := make(map[string]string)

	file, err := os.Open(path)
	if err != nil {
		return logs
	}
	defer file.Close()

	var currentServerName string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}

		if m := nameDirectiveRegex.FindStringSubmatch(line); m != nil {
			currentServerName = m[1]
		}

		m := logDirectiveRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		logPath := m[1]
		if logPath == "" {
			logPath = m[2]
		}
		// Piped loggers and syslog targets are not files
		if logPath == "off" || strings.HasPrefix(logPath, "syslog:") || strings.HasPrefix(logPath, "|") {
			continue
		}
		logPath = strings.ReplaceAll(logPath, "${APACHE_LOG_DIR}", d.LogDir)
		logs[logPath] = currentServerName
	}
	return logs
}

// Best returns the most likely access log from logs.
// Selection priority:
//  1. An unrotated access.log or access_log
//  2. Largest log file by size
//
// Returns an empty LogFile if logs is empty.
func Best(logs []LogFile) LogFile {
	if len(logs) == 0 {
		return LogFile{}
	}

	for _, l := range logs {
		base := filepath.Base(l.Path)
		if base == "access.log" || base == "access_log" {
			return l
		}
	}

	largest := logs[0]
	for _, l := range logs[1:] {
		if l.Size > largest.Size {
			largest = l
		}
	}
	return largest
}
