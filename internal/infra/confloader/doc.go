// Package confloader loads layered configuration with koanf and watches the
// configuration file with fsnotify.
//
// Sources are applied in order and later ones win:
//
//  1. the YAML file given with WithConfigFile
//  2. environment variables under the prefix (NOCSRF_ by default)
//  3. maps passed to LoadMap, typically built from command-line flags
//
// Environment names use a double underscore between nesting levels so that
// keys can keep their single underscores:
//
//	NOCSRF_SESSION__COOKIE_NAME=sid  ->  session.cookie_name
//	NOCSRF_SERVER__HTTP__ADDR=:9000  ->  server.http.addr
package confloader
