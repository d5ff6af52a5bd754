package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"
)

type Config struct {
	Port        string `json:"port"`
	BasePath    string `json:"basePath"`
	CatalogsDir string `json:"catalogsDir"`
	DBURL       string `json:"dbUrl"`
	AutoMigrate bool   `json:"autoMigrate"`
	PageSize    int    `json:"pageSize"`
	Debug       bool   `json:"debug"`
}

func def() Config {
	return Config{
		Port:        "8080",
		BasePath:    "/admin",
		CatalogsDir: "reference/catalogs",
		DBURL:       "",
		AutoMigrate: false,
		PageSize:    25,
		Debug:       false,
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

// Load — конфиг из JSON по умолчанию, потом ENV, потом флаги.
func Load() Config { return LoadWithPath("config.json") }

// LoadWithPath читает JSON по указанному пути, потом применяет ENV и флаги.
func LoadWithPath(jsonPath string) Config {
	cfg := def()

	// JSON (если файл существует)
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		if c2, err := loadJSON(jsonPath); err == nil {
			cfg = c2
		}
	}

	// ENV overrides
	cfg.Port = getenv("TABLERO_PORT", cfg.Port)
	cfg.BasePath = getenv("TABLERO_BASE_PATH", cfg.BasePath)
	cfg.CatalogsDir = getenv("TABLERO_CATALOGS_DIR", cfg.CatalogsDir)
	cfg.DBURL = getenv("TABLERO_DB_URL", cfg.DBURL)
	cfg.AutoMigrate = getenvBool("TABLERO_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.Debug = getenvBool("TABLERO_DEBUG", cfg.Debug)

	// Flags overrides
	configPath := flag.String("config", jsonPath, "Path to config JSON")
	port := flag.String("port", cfg.Port, "HTTP port")
	base := flag.String("base", cfg.BasePath, "Admin base path")
	catalogs := flag.String("catalogs", cfg.CatalogsDir, "Path to catalogs directory")
	db := flag.String("db", cfg.DBURL, "Postgres URL (empty = in-memory)")
	auto := flag.Bool("auto-migrate", cfg.AutoMigrate, "Auto-migrate add-only")
	pageSize := flag.Int("page-size", cfg.PageSize, "Default list page size")
	debug := flag.Bool("debug", cfg.Debug, "Gin debug mode")

	flag.Parse()

	// Если через флаг передали другой конфиг — перечитаем
	if *configPath != jsonPath {
		return LoadWithPath(*configPath)
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.BasePath = strings.TrimSpace(*base)
	cfg.CatalogsDir = strings.TrimSpace(*catalogs)
	cfg.DBURL = strings.TrimSpace(*db)
	cfg.AutoMigrate = *auto
	cfg.PageSize = *pageSize
	cfg.Debug = *debug

	return cfg
}
