package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	"github.com/trezcool/cyberlab/core/quiz"
)

type (
	// labFile is the YAML layout of an imported lab. Connections name their devices.
	labFile struct {
		Title        string `yaml:"title"`
		Description  string `yaml:"description"`
		Instructions string `yaml:"instructions"`
		CourseID     string `yaml:"course_id"`
		Difficulty   string `yaml:"difficulty"`
		Status       string `yaml:"status"`

		Devices     []deviceEntry     `yaml:"devices"`
		Connections []connectionEntry `yaml:"connections"`
		Questions   []questionEntry   `yaml:"questions"`
	}

	deviceEntry struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
		IP   string `yaml:"ip"`
		URL  string `yaml:"url"`
		X    *int   `yaml:"x"`
		Y    *int   `yaml:"y"`
	}

	connectionEntry struct {
		Source string `yaml:"source"`
		Target string `yaml:"target"`
		Type   string `yaml:"type"`
		Status string `yaml:"status"` // defaults to disconnected
	}

	questionEntry struct {
		Question      string   `yaml:"question"`
		CorrectAnswer string   `yaml:"correct_answer"`
		Explanation   string   `yaml:"explanation"`
		Points        int      `yaml:"points"`
		Hints         []string `yaml:"hints"`
	}
)

func (cli *commandLine) importLab(path string, dryRun bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading lab file")
	}
	var lf labFile
	if err = yaml.Unmarshal(data, &lf); err != nil {
		return errors.Wrap(err, "parsing lab file")
	}

	labSvc, quizSvc := cli.labSvc, cli.quizSvc
	if dryRun {
		labSvc, quizSvc = cli.dryRun()
	}

	ctx := context.Background()
	lb, err := importLabFile(ctx, cli, labSvc, quizSvc, lf)
	if err != nil {
		if lb.ID != "" { // drop the half imported lab (cascades)
			if dErr := labSvc.DeleteLab(ctx, lb.ID); dErr != nil {
				return errors.Wrapf(err, "removing partial lab: %v", dErr)
			}
		}
		return err
	}

	mode := "imported"
	if dryRun {
		mode = "checked (dry run)"
	}
	fmt.Fprintf(cli.out, "lab %q %s: %d devices, %d connections, %d questions\n",
		lb.Title, mode, len(lf.Devices), len(lf.Connections), len(lf.Questions))
	if !dryRun {
		fmt.Fprintf(cli.out, "id: %s\n", lb.ID)
	}
	return nil
}

func importLabFile(ctx context.Context, cli *commandLine, labSvc lab.ServiceInterface, quizSvc quiz.ServiceInterface, lf labFile) (lab.Lab, error) {
	nl := lab.NewLab{
		Title:        lf.Title,
		Description:  lf.Description,
		Instructions: lf.Instructions,
		CourseID:     lf.CourseID,
		Difficulty:   lf.Difficulty,
		Status:       lf.Status,
	}
	if err := nl.Validate(cli.validate); err != nil {
		return lab.Lab{}, errors.Wrap(err, "lab")
	}
	lb, err := labSvc.CreateLab(ctx, nl)
	if err != nil {
		return lab.Lab{}, errors.Wrap(err, "creating lab")
	}

	deviceIDs := make(map[string]string, len(lf.Devices))
	for i, d := range lf.Devices {
		nd := lab.NewDevice{Name: d.Name, Type: lab.DeviceType(d.Type), IP: d.IP, URL: d.URL, X: d.X, Y: d.Y}
		if err = nd.Validate(cli.validate); err != nil {
			return lb, errors.Wrapf(err, "device #%d", i+1)
		}
		if _, dup := deviceIDs[nd.Name]; dup {
			return lb, core.NewValidationError(fmt.Errorf("device #%d: duplicate device name %q", i+1, nd.Name))
		}
		dev, err := labSvc.CreateDevice(ctx, lb.ID, nd)
		if err != nil {
			return lb, errors.Wrapf(err, "creating device %q", nd.Name)
		}
		deviceIDs[dev.Name] = dev.ID
	}

	for i, c := range lf.Connections {
		status := lab.ConnectionStatus(c.Status)
		if status == "" {
			status = lab.StatusDisconnected
		}
		nc := lab.NewConnection{
			SourceDeviceID: deviceIDs[core.CleanString(c.Source)],
			TargetDeviceID: deviceIDs[core.CleanString(c.Target)],
			Type:           lab.ConnectionType(c.Type),
		}
		if nc.SourceDeviceID == "" || nc.TargetDeviceID == "" {
			return lb, core.NewValidationError(fmt.Errorf("connection #%d: unknown device %q or %q", i+1, c.Source, c.Target))
		}
		if err = nc.Validate(cli.validate); err != nil {
			return lb, errors.Wrapf(err, "connection #%d", i+1)
		}
		if _, err = labSvc.AddConnection(ctx, lb.ID, nc, status); err != nil {
			return lb, errors.Wrapf(err, "connection #%d (%s - %s)", i+1, c.Source, c.Target)
		}
	}

	for i, q := range lf.Questions {
		nq := quiz.NewQuestion{
			Question:      q.Question,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Points:        q.Points,
			Hints:         make([]quiz.HintInput, 0, len(q.Hints)),
		}
		for _, h := range q.Hints {
			nq.Hints = append(nq.Hints, quiz.HintInput{Hint: h})
		}
		if err = nq.Validate(cli.validate); err != nil {
			return lb, errors.Wrapf(err, "question #%d", i+1)
		}
		if _, err = quizSvc.CreateQuestion(ctx, lb.ID, nq); err != nil {
			return lb, errors.Wrapf(err, "creating question #%d", i+1)
		}
	}
	return lb, nil
}
