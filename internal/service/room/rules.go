package room

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var roomCodeRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-zA-Z0-9]{8}$")),
}

var userIdRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 128),
}

var currentTimeRule = []validation.Rule{
	validation.Min(0.0),
}

func (c Content) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ContentId, validation.Required, validation.Length(1, 128)),
		validation.Field(&c.UnitId, validation.Length(0, 128)),
		validation.Field(&c.Title, validation.RuneLength(0, 256)),
		validation.Field(&c.Sequence, validation.Min(0)),
	)
}

func (s *service) messageTextRule() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(1, s.cfg.MessageMaxLength),
	}
}

func (s *service) maxParticipantsRule() []validation.Rule {
	return []validation.Rule{
		validation.Min(0),
		validation.Max(s.cfg.MembersLimitMax),
	}
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrValidation, err)
}
