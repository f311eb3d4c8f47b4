package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Ayash-Bera/placefinder/backend/internal/database"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Runner struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewRunner(db *gorm.DB, logger *logrus.Logger) *Runner {
	return &Runner{
		db:     db,
		logger: logger,
	}
}

// RunMigrations applies the GORM schema and then every .sql file in
// migrationsPath in name order. A missing directory is not an error.
func (r *Runner) RunMigrations(migrationsPath string) error {
	r.logger.Info("Starting database migrations...")

	if err := database.Migrate(r.db); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	if err := r.runSQLMigrations(migrationsPath); err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

func (r *Runner) runSQLMigrations(migrationsPath string) error {
	if migrationsPath == "" {
		return nil
	}

	files, err := os.ReadDir(migrationsPath)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.WithField("path", migrationsPath).Warn("Migrations directory not found, skipping SQL migrations")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}

	sort.Strings(sqlFiles)

	for _, fileName := range sqlFiles {
		if err := r.runSQLFile(filepath.Join(migrationsPath, fileName)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", fileName, err)
		}
		r.logger.WithField("file", fileName).Info("Migration executed successfully")
	}

	return nil
}

func (r *Runner) runSQLFile(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	statements := splitSQLStatements(string(content))

	for i, stmt := range statements {
		r.logger.WithFields(logrus.Fields{
			"file":      filepath.Base(filePath),
			"statement": i + 1,
		}).Debug("Executing SQL statement")

		if err := r.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to execute statement %d in %s: %w", i+1, filepath.Base(filePath), err)
		}
	}

	return nil
}

// splitSQLStatements drops comment lines and splits the rest on semicolons.
func splitSQLStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	cleanedSQL := strings.Join(cleanedLines, " ")
	statements := strings.Split(cleanedSQL, ";")

	var result []string
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}

	return result
}
