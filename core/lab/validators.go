package lab

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cyberlab/core"
)

var (
	deviceTypeTag  = "device_type"
	deviceTypeText = "invalid device type"

	connectionTypeTag  = "connection_type"
	connectionTypeText = "invalid connection type (ethernet, wifi, fiber or copper)"

	remoteURLTag  = "remote_url"
	remoteURLText = "remote access must be an .rdp file, an ssh:// or a vpc:// url"
)

// InitValidators registers the lab validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(deviceTypeTag, deviceTypeValidation)
	core.RegisterCustomTranslation(validate, translator, deviceTypeTag, deviceTypeText)

	_ = validate.RegisterValidation(connectionTypeTag, connectionTypeValidation)
	core.RegisterCustomTranslation(validate, translator, connectionTypeTag, connectionTypeText)

	_ = validate.RegisterValidation(remoteURLTag, remoteURLValidation)
	core.RegisterCustomTranslation(validate, translator, remoteURLTag, remoteURLText)
}

// IsRemoteURL checks the remote access target format. Empty means "no remote access".
// Only the shape is checked, the target is never contacted.
func IsRemoteURL(u string) bool {
	switch {
	case u == "":
		return true
	case strings.HasSuffix(strings.ToLower(u), ".rdp"):
		return true
	case strings.HasPrefix(u, "ssh://") && len(u) > len("ssh://"):
		return true
	case strings.HasPrefix(u, "vpc://") && len(u) > len("vpc://"):
		return true
	}
	return false
}

// Custom Validators

func deviceTypeValidation(fl validator.FieldLevel) bool {
	return DeviceType(fl.Field().String()).IsValid()
}

func connectionTypeValidation(fl validator.FieldLevel) bool {
	return ConnectionType(fl.Field().String()).IsValid()
}

func remoteURLValidation(fl validator.FieldLevel) bool {
	return IsRemoteURL(fl.Field().String())
}
