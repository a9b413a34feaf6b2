package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "daemon":
		return daemonTemplate, nil
	case "send":
		return sendTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `id = "osclinkd"
host = "127.0.0.1"
port = 9999
concurrent = false
workers = 4
verbose = false
admin_listen = "127.0.0.1:7070"
admin_token = ""
cors_origins = ["http://localhost:3000"]
record_file = ""
heartbeat = "30s"

[[clients]]
name = "supercollider"
host = "127.0.0.1"
port = 57120

[[clients]]
name = "visuals"
host = "127.0.0.1"
port = 7400

[log]
level = "info"
`

const sendTemplate = `host = "127.0.0.1"
port = 9999
listen = "127.0.0.1:0"
`
