package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"tablero/internal/admin"
	"tablero/internal/config"
	"tablero/internal/meta"
	"tablero/internal/modulos"
	"tablero/internal/pg"
	"tablero/internal/reference"
	"tablero/internal/repo"
)

func main() {
	cfg := config.Load()

	// 1. Реестр сущностей
	reg := meta.NewRegistry()
	if err := reg.Register(modulos.All()...); err != nil {
		log.Fatalf("Ошибка регистрации сущностей: %v", err)
	}
	fmt.Printf("Зарегистрировано сущностей: %d\n", len(reg.All()))

	// 2. Справочники
	refs, err := reference.LoadCatalogs(cfg.CatalogsDir)
	if err != nil {
		log.Fatalf("Ошибка загрузки справочников: %v", err)
	}
	fmt.Printf("Загружено справочников: %d\n", len(refs))

	// 3. Опциональный Postgres: схема генерится из дескрипторов
	if cfg.DBURL != "" {
		db, err := pg.Open(cfg.DBURL)
		if err != nil {
			log.Fatalf("Ошибка подключения к Postgres: %v", err)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			ddl, err := pg.GenerateDDL(reg, "tablero")
			if err != nil {
				log.Fatalf("Ошибка генерации DDL: %v", err)
			}
			if err := pg.ApplyDDL(db, ddl); err != nil {
				log.Fatalf("Ошибка применения DDL: %v", err)
			}
		}
	}

	// 4. Хранилище и движок администрирования
	store := repo.NewMemory(reg)
	engine := admin.NewEngine(reg, store, refs, cfg.BasePath)
	if err := modulos.RegisterViews(engine); err != nil {
		log.Fatalf("Ошибка конфигурации view: %v", err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	engine.Mount(r)

	fmt.Printf("Стартуем сервер Tablero на :%s...\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Ошибка сервера: %v", err)
	}
}
