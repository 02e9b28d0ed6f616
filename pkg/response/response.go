package response

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"farmstand-realtime/pkg/discord"
	"farmstand-realtime/pkg/errors"
)

func NewOKResp(data any) Resp {
	return Resp{Message: MessageSuccess, Data: data}
}

// OK sends 200 JSON with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, NewOKResp(data))
}

func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(parseError(errors.NewUnauthorizedHTTPError(), c, nil))
}

func Forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(parseError(errors.NewForbiddenHTTPError(), c, nil))
}

func parseError(err error, c *gin.Context, d discord.IDiscord) (int, Resp) {
	switch parsedErr := err.(type) {
	case *errors.ValidationError:
		return http.StatusBadRequest, Resp{ErrorCode: parsedErr.Code, Message: parsedErr.Error()}
	case *errors.PermissionError:
		return http.StatusForbidden, Resp{ErrorCode: parsedErr.Code, Message: parsedErr.Error()}
	case *errors.ValidationErrorCollector:
		return http.StatusBadRequest, Resp{
			ErrorCode: ValidationErrorCode,
			Message:   ValidationErrorMsg,
			Errors:    parsedErr.Errors(),
		}
	case *errors.HTTPError:
		statusCode := parsedErr.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusBadRequest
		}
		return statusCode, Resp{ErrorCode: parsedErr.Code, Message: parsedErr.Message}
	default:
		if d != nil {
			sendDiscordMessageAsync(d, buildInternalServerErrorDataForReportBug(c, err.Error(), captureStackTrace()))
		}
		return http.StatusInternalServerError, Resp{
			ErrorCode: InternalServerErrorCode,
			Message:   DefaultErrorMessage,
		}
	}
}

// Error sends the status and body derived from err. Unknown errors become a
// 500 and are reported to d when it is set.
func Error(c *gin.Context, err error, d discord.IDiscord) {
	c.JSON(parseError(err, c, d))
}

// ErrorWithMap sends the HTTPError mapped from err, matching with errors.Is.
func ErrorWithMap(c *gin.Context, err error, eMap ErrorMapping, d discord.IDiscord) {
	for target, httpErr := range eMap {
		if stderrors.Is(err, target) {
			Error(c, httpErr, nil)
			return
		}
	}
	Error(c, err, d)
}

// PanicError answers a recovered panic with a 500.
func PanicError(c *gin.Context, rec any, d discord.IDiscord) {
	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("%v", rec)
	}
	c.AbortWithStatusJSON(parseError(err, c, d))
}

func captureStackTrace() []string {
	var pcs [DefaultStackTraceDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	var stackTrace []string
	for {
		f, more := frames.Next()
		stackTrace = append(stackTrace, fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return stackTrace
}
