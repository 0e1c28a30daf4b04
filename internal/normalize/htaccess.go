package normalize

import (
	"fmt"
	"os"
	"path/filepath"
)

// HtaccessName is the rewrite rule file written to the output root.
const HtaccessName = ".htaccess"

// Htaccess renders the Apache rules serving a single page app from /<slug>/.
func Htaccess(slug string) string {
	return "DirectoryIndex index.html\n" +
		"RewriteEngine On\n" +
		"RewriteBase /" + slug + "/\n" +
		"RewriteCond %{REQUEST_FILENAME} -f [OR]\n" +
		"RewriteCond %{REQUEST_FILENAME} -d\n" +
		"RewriteRule ^ - [L]\n" +
		"RewriteRule . index.html [L]\n"
}

// WriteHtaccess writes the rewrite rules into dir, replacing any existing file.
func WriteHtaccess(dir, slug string) error {
	path := filepath.Join(dir, HtaccessName)
	if err := os.WriteFile(path, []byte(Htaccess(slug)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", HtaccessName, err)
	}
	return nil
}
