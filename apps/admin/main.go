package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
	"github.com/trackside/carnival/core/house"
	"github.com/trackside/carnival/core/staff"
	emailsvc "github.com/trackside/carnival/services/email"
	logsvc "github.com/trackside/carnival/services/logger"
	"github.com/trackside/carnival/storage/database"
	sqlxrepos "github.com/trackside/carnival/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	dbx := sqlx.NewDb(db, "postgres")

	// set up services
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(dbx))
	houseSvc := house.NewService(
		sqlxrepos.NewHouseRepository(dbx), auditSvc, emailsvc.NewConsoleService(conf), appLogger, conf)
	staffSvc := staff.NewService(sqlxrepos.NewStaffRepository(dbx), auditSvc, appLogger)

	// start CLI
	cli := commandLine{
		db:       db,
		staffSvc: staffSvc,
		houseSvc: houseSvc,
		stdout:   os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
