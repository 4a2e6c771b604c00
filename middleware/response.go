package middleware

import (
	"errors"
	"net/http"

	"BKConnect/tools/errs"

	"github.com/gin-gonic/gin"
)

// Response is the uniform HTTP reply envelope.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "success", Data: data})
}

// Fail maps a CodeError to a 400 reply with its business code; anything else
// becomes an opaque internal error.
func Fail(c *gin.Context, err error) {
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		c.JSON(http.StatusBadRequest, Response{Code: ce.Code, Msg: ce.Msg})
		return
	}
	c.JSON(http.StatusBadRequest, Response{Code: errs.CodeInternal, Msg: errs.ErrInternal.Msg})
}
