// Package emailsvc implements core.EmailService.
package emailsvc

import "github.com/trezcool/studypal/core"

// New picks the email backend: the console in debug (or without a SendGrid key), SendGrid otherwise.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	switch {
	case conf.TestMode:
		return NewConsoleServiceMock(conf)
	case conf.Debug || conf.SendgridApiKey == "":
		return NewConsoleService(conf)
	default:
		return NewSendgridService(conf, logger)
	}
}
