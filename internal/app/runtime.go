package app

import (
	"os"
	"path/filepath"
)

const testModeEnv = "WASTEWATCH_TEST_MODE"

// InTestMode reports whether the process runs under the test harness.
func InTestMode() bool {
	return os.Getenv(testModeEnv) == "1"
}

// EnvFiles returns the dotenv files found in dir, in load order. Under the
// test harness it returns none so a developer's .env never leaks into tests.
func EnvFiles(dir string) []string {
	if InTestMode() {
		return nil
	}
	var files []string
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
