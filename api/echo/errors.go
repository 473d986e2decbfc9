package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jferreira/maitrenotifie/core"
	"github.com/jferreira/maitrenotifie/core/homework"
	"github.com/jferreira/maitrenotifie/core/roster"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called to gracefully stop the server whenever a core shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ExtractionError:
			code = http.StatusBadGateway
			message = "Erreur lors de l'analyse de l'image. Vérifiez votre connexion."
		case *roster.ParseError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default:
			switch errors.Cause(err) {
			case roster.ErrClassNotFound, roster.ErrStudentNotFound:
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			case homework.ErrInvalidTransition, homework.ErrBusy:
				code = http.StatusConflict
				message = errors.Cause(err).Error()
			case homework.ErrNoRecipients:
				code = http.StatusBadRequest
				message = "Aucun parent ne peut être notifié dans cette classe."
			case roster.ErrImportEmpty:
				code = http.StatusUnprocessableEntity
				message = "Aucune donnée valide trouvée. Vérifiez que votre fichier contient les colonnes : Classe, Nom, Email."
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				logger.Error(msg, errors.Wrap(err, msg))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
