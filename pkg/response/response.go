package response

import (
	"errors"
	"net/http"

	appErr "rulecard-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Body struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"msg"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, "")
}

func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	JSON(c, http.StatusOK, data, msg)
}

func Error(c *gin.Context, status int, msg string) {
	JSON(c, status, gin.H{}, msg)
}

// FromError writes err with the status its sentinel maps to.
func FromError(c *gin.Context, err error) {
	Error(c, StatusFor(err), err.Error())
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, appErr.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, appErr.ErrInvalidCardIndex),
		errors.Is(err, appErr.ErrInvalidJokerValue),
		errors.Is(err, appErr.ErrNoSelection),
		errors.Is(err, appErr.ErrNotAJoker),
		errors.Is(err, appErr.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, appErr.ErrGameOver),
		errors.Is(err, appErr.ErrSessionClosed),
		errors.Is(err, appErr.ErrNotYourTurn),
		errors.Is(err, appErr.ErrAwaitingAgent),
		errors.Is(err, appErr.ErrJokerValuePending),
		errors.Is(err, appErr.ErrJokerValueSet):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func JSON(c *gin.Context, status int, data interface{}, msg string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Code: status,
		Data: data,
		Msg:  msg,
	})
}
