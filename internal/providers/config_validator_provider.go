package providers

import (
	"fmt"
	"github.com/gookit/validate"
	"net/url"
	"watchsync/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	if cv.conf.Persistence.Driver != "memory" && cv.conf.Persistence.Dir == "" {
		return fmt.Errorf("invalid config: persistence.dir is required for driver %q", cv.conf.Persistence.Driver)
	}

	for _, origin := range cv.conf.Player.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid config: player origin %q must be scheme://host", origin)
		}
	}
	return nil
}
