package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	"github.com/trezcool/cyberlab/core/quiz"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	conf     *core.Config
	labSvc   lab.ServiceInterface
	quizSvc  quiz.ServiceInterface
	validate *validator.Validate
	out      io.Writer

	// dryRun builds services over a throwaway store
	dryRun func() (lab.ServiceInterface, quiz.ServiceInterface)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command over the embedded migrations")
	fmt.Fprintln(cli.out, "  import -file FILE [-dry-run] - create a lab (devices, connections, questions) from a YAML file")
	fmt.Fprintln(cli.out, "  grade -correct TEXT -answer TEXT - show how an answer would be graded")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The lab YAML file.")
	importDryRun := importCmd.Bool("dry-run", false, "Validate and import into memory only.")
	importCmd.SetOutput(cli.out)

	gradeCmd := flag.NewFlagSet("grade", flag.ContinueOnError)
	gradeCorrect := gradeCmd.String("correct", "", "The expected answer.")
	gradeAnswer := gradeCmd.String("answer", "", "The submitted answer.")
	gradeCmd.SetOutput(cli.out)

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importLab(*importFile, *importDryRun)
	case "grade":
		if err := gradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gradeCorrect == "" {
			gradeCmd.Usage()
			return errHelp
		}
		return cli.grade(*gradeCorrect, *gradeAnswer)
	default:
		cli.printUsage()
		return errHelp
	}
}
