package lab

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cyberlab/core"
)

// NewLab contains information needed to create a new Lab.
type NewLab struct {
	Title        string `json:"title" validate:"required,notblank,max=200"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	CourseID     string `json:"course_id"`
	Difficulty   string `json:"difficulty" validate:"omitempty,max=50"`
	Status       string `json:"status" validate:"omitempty,max=50"`
}

func (nl *NewLab) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.CourseID = core.CleanString(nl.CourseID)
	nl.Difficulty = core.CleanString(nl.Difficulty, true /* lower */)
	nl.Status = core.CleanString(nl.Status, true /* lower */)
	return validate.Struct(nl)
}

// UpdateLab defines what may be changed on an existing Lab. Nil fields are left as they are.
type UpdateLab struct {
	Title        *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description  *string `json:"description"`
	Instructions *string `json:"instructions"`
	CourseID     *string `json:"course_id"`
	Difficulty   *string `json:"difficulty" validate:"omitempty,max=50"`
	Status       *string `json:"status" validate:"omitempty,max=50"`
}

func (ul *UpdateLab) Validate(validate *validator.Validate) error {
	return validate.Struct(ul)
}

// NewDevice contains information needed to add a Device to a lab.
type NewDevice struct {
	Name string     `json:"name" validate:"required,notblank,max=100"`
	Type DeviceType `json:"type" validate:"required,device_type"`
	IP   string     `json:"ip" validate:"max=100"`
	URL  string     `json:"url" validate:"remote_url"`
	X    *int       `json:"x"`
	Y    *int       `json:"y"`
}

func (nd *NewDevice) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	nd.IP = core.CleanString(nd.IP)
	nd.URL = core.CleanString(nd.URL)
	return validate.Struct(nd)
}

// UpdateDevice defines what may be changed on an existing Device. Nil fields are left as they are.
// An empty URL clears the remote access target.
type UpdateDevice struct {
	Name *string     `json:"name" validate:"omitempty,notblank,max=100"`
	Type *DeviceType `json:"type" validate:"omitempty,device_type"`
	IP   *string     `json:"ip" validate:"omitempty,max=100"`
	URL  *string     `json:"url" validate:"omitempty,remote_url"`
	X    *int        `json:"x"`
	Y    *int        `json:"y"`
}

func (ud *UpdateDevice) Validate(validate *validator.Validate) error {
	if ud.URL != nil {
		u := core.CleanString(*ud.URL)
		ud.URL = &u
	}
	return validate.Struct(ud)
}

// MoveDevice is sent when a device is dragged on the diagram.
type MoveDevice struct {
	X *int `json:"x" validate:"required"`
	Y *int `json:"y" validate:"required"`
}

func (md *MoveDevice) Validate(validate *validator.Validate) error {
	return validate.Struct(md)
}

// NewConnection contains information needed to link two devices of a lab.
// Structural rules (no self-loop, same lab, no duplicate) are enforced by Service.AddConnection.
type NewConnection struct {
	SourceDeviceID string         `json:"source_device_id" validate:"required"`
	TargetDeviceID string         `json:"target_device_id" validate:"required"`
	Type           ConnectionType `json:"connection_type" validate:"required,connection_type"`
}

func (nc *NewConnection) Validate(validate *validator.Validate) error {
	nc.SourceDeviceID = core.CleanString(nc.SourceDeviceID)
	nc.TargetDeviceID = core.CleanString(nc.TargetDeviceID)
	nc.Type = ConnectionType(core.CleanString(string(nc.Type), true /* lower */))
	return validate.Struct(nc)
}

type QueryFilter struct {
	Search   string `query:"search"`
	CourseID string `query:"course_id"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CourseID = core.CleanString(qf.CourseID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
