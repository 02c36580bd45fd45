package middleware

import (
	"errors"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yigit/roster/internal/pkg/apperrors"
)

// BindForm binds a urlencoded or multipart form into obj and runs its
// `binding` rules. The first failing field's `msg` tag becomes the
// user-facing message.
func BindForm(c *gin.Context, obj interface{}) error {
	err := c.ShouldBind(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg := fieldMessage(obj, verrs[0].StructField()); msg != "" {
			return apperrors.NewValidationError(msg)
		}
	}
	return apperrors.NewCustomError(apperrors.ErrValidationFailed, "Invalid form submission.").WithCause(err)
}

// fieldMessage looks up the msg tag of a field on the struct behind obj
func fieldMessage(obj interface{}, field string) string {
	value := reflect.ValueOf(obj)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return ""
	}
	f, ok := value.Type().FieldByName(field)
	if !ok {
		return ""
	}
	return f.Tag.Get("msg")
}
