package database

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

type MigrationConfig struct {
	// FolderPath is read from disk when it exists; otherwise Source is used.
	FolderPath string
	// Source holds embedded migrations under SourceDir.
	Source    fs.FS
	SourceDir string
	Version   uint
	Force     int
	// AutoRollback forces a dirty database back to the previous version.
	AutoRollback bool
}

type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// MigrateDB applies migrations to db using the migrate driver for its flavor.
func (ms *MigrationService) MigrateDB(db DB) error {
	var (
		driver migratedb.Driver
		name   string
		err    error
	)

	switch db.DriverName() {
	case "sqlite", "sqlite3":
		name = "sqlite"
		driver, err = sqlite.WithInstance(db.Raw().DB, &sqlite.Config{})
	default:
		name = "postgres"
		driver, err = postgres.WithInstance(db.Raw().DB, &postgres.Config{})
	}
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}

	return ms.Migrate(name, driver)
}

func (ms *MigrationService) resolveMigrationFolder() string {
	folder := ms.config.FolderPath
	if folder == "" {
		return ""
	}
	if filepath.IsAbs(folder) {
		return folder
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, folder)
	}
	return folder
}

func (ms *MigrationService) Migrate(databaseName string, databaseInstance migratedb.Driver) error {
	var (
		m   *migrate.Migrate
		err error
	)

	folder := ms.resolveMigrationFolder()
	if _, statErr := os.Stat(folder); folder != "" && statErr == nil {
		m, err = migrate.NewWithDatabaseInstance("file://"+folder, databaseName, databaseInstance)
	} else if ms.config.Source != nil {
		source, srcErr := iofs.New(ms.config.Source, ms.config.SourceDir)
		if srcErr != nil {
			return errors.Wrap(srcErr, "failed to open embedded migrations")
		}
		m, err = migrate.NewWithInstance("iofs", source, databaseName, databaseInstance)
	} else {
		return errors.New(fmt.Sprintf("migration folder %s does not exist", folder))
	}
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return err
	}

	m.Log = MigrationLogger{Logger: ms.logger}

	return ms.runMigration(m)
}

func (ms *MigrationService) runMigration(m *migrate.Migrate) error {
	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force database to version %d", ms.config.Force)
			return err
		}
	}

	version, _, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		ms.logger.WithError(versionErr).Error("Failed to get current migration version")
	}

	startTime := time.Now()

	var migrationErr error
	if ms.config.Version != 0 {
		migrationErr = m.Migrate(ms.config.Version)
	} else {
		migrationErr = m.Up()
	}

	ms.logger.Infof("Database migrations completed in %v", time.Since(startTime))

	return ms.handleMigrationError(m, migrationErr, version)
}

func (ms *MigrationService) handleMigrationError(m *migrate.Migrate, err error, previousVersion uint) error {
	if err == nil {
		ms.logger.Info("Successfully applied migrations")
		return nil
	}

	if err == migrate.ErrNoChange {
		ms.logger.Info("No new migrations to apply")
		return nil
	}

	// The database is ahead of the available files, usually after a rollback.
	if strings.Contains(err.Error(), "no migration found for version") {
		latest, latestErr := getLatestVersion(ms.resolveMigrationFolder())
		if latestErr != nil {
			ms.logger.WithError(latestErr).Error("Failed to get latest migration version")
			return err
		}
		ms.logger.Warnf("No migration found for version %d. Forcing database to version %d", previousVersion, latest)
		return m.Force(latest)
	}

	ms.logger.WithError(err).Errorf("Migration failed with error: %v", err)

	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		ms.logger.WithError(versionErr).Error("Failed to get current migration version")
		return err
	}

	if ms.config.AutoRollback && dirty {
		if previousVersion == 0 && version > 0 {
			previousVersion = version - 1
		}
		ms.logger.Warnf("Database is dirty at version %d. Reverting to version %d", version, previousVersion)
		if forceErr := m.Force(int(previousVersion)); forceErr != nil {
			ms.logger.WithError(forceErr).Errorf("Failed to force database to version %d", previousVersion)
			return forceErr
		}
	}

	// the original error is still returned so startup halts
	return err
}

func getLatestVersion(folderPath string) (int, error) {
	files, err := os.ReadDir(folderPath)
	if err != nil {
		return 0, err
	}

	var versions []int
	re := regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := re.FindStringSubmatch(file.Name())
		if len(matches) > 1 {
			version, err := strconv.Atoi(matches[1])
			if err != nil {
				return 0, err
			}
			versions = append(versions, version)
		}
	}

	if len(versions) == 0 {
		return 0, fmt.Errorf("no migration files found")
	}

	sort.Ints(versions)
	return versions[len(versions)-1], nil
}
