package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ApplyDDL выполняет сгенерированный DDL по фазам: сначала схема и
// таблицы, затем внешние ключи. Весь DDL idempotent, повторный запуск
// безопасен.
func ApplyDDL(db *sql.DB, ddl map[string]string) error {
	phases := make([]string, 0, len(ddl))
	for k := range ddl {
		phases = append(phases, k)
	}
	sort.Strings(phases) // префиксы 000_/200_ задают порядок фаз

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, phase := range phases {
		stmt := strings.TrimSpace(ddl[phase])
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// add constraint не умеет if not exists, 42710 при повторе нормален
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "42710" {
				log.Printf("Миграция: %s уже существует, пропускаем", pgErr.ConstraintName)
				continue
			}
			e := strings.ToLower(err.Error())
			if strings.Contains(e, "already exists") || strings.Contains(e, "duplicate") {
				log.Printf("Миграция: объект уже существует, пропускаем: %v", err)
				continue
			}
			return fmt.Errorf("миграция %s: %w", phase, err)
		}
	}
	return nil
}
