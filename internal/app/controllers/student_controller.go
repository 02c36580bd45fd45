package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/app/models"
	"github.com/yigit/roster/internal/app/services"
	"github.com/yigit/roster/internal/middleware"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/session"
)

// studentForm is the text part of the add and update forms. The photo is
// read separately since it may be absent. Any delete_photo value counts as
// checked.
type studentForm struct {
	Name        string `form:"name"`
	Age         string `form:"age,default=0"`
	DeletePhoto string `form:"delete_photo"`
}

// StudentController serves the roster pages
type StudentController struct {
	studentService *services.StudentService
	authService    *services.AuthService
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService *services.StudentService, authService *services.AuthService, logger zerolog.Logger) *StudentController {
	return &StudentController{
		studentService: studentService,
		authService:    authService,
		logger:         logger,
	}
}

// bindInput reads the student form including the optional photo
func (sc *StudentController) bindInput(ctx *gin.Context) (services.StudentInput, error) {
	var form studentForm
	if err := middleware.BindForm(ctx, &form); err != nil {
		return services.StudentInput{}, err
	}

	in := services.StudentInput{Name: form.Name, Age: form.Age, DeletePhoto: form.DeletePhoto != ""}
	if fh, err := ctx.FormFile("photo"); err == nil {
		in.Photo = fh
	}
	return in, nil
}

// Index lists every student. A session whose account no longer exists is
// dropped and sent back to the login page.
func (sc *StudentController) Index(ctx *gin.Context) {
	data := gin.H{"title": "Students"}
	if userID, ok := middleware.GetUserID(ctx); ok {
		user, err := sc.authService.CurrentUser(ctx.Request.Context(), userID)
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			sc.logger.Warn().Int64("userID", userID).Msg("Session points at a missing account")
			session.Get(ctx).ClearUser()
			ctx.Redirect(http.StatusFound, PathLogin)
			return
		case err != nil:
			sc.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to load current user")
		default:
			data["username"] = user.Username
		}
	}

	students, err := sc.studentService.List(ctx.Request.Context())
	if err != nil {
		sc.logger.Error().Err(err).Msg("Failed to list students")
		session.Get(ctx).AddFlash(session.FlashError, apperrors.Message(err, middleware.MsgUnexpectedError))
		data["students"] = []*models.Student{}
		render(ctx, http.StatusInternalServerError, "index.html", data)
		return
	}

	data["students"] = students
	render(ctx, http.StatusOK, "index.html", data)
}

// AddForm shows the empty student form
func (sc *StudentController) AddForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "add.html", gin.H{"title": "Add student"})
}

// Add creates a student from the submitted form
func (sc *StudentController) Add(ctx *gin.Context) {
	in, err := sc.bindInput(ctx)
	if err != nil {
		middleware.HandleFormError(ctx, sc.logger, err, PathAdd)
		return
	}

	if _, err := sc.studentService.Create(ctx.Request.Context(), in); err != nil {
		middleware.HandleFormError(ctx, sc.logger, err, PathAdd)
		return
	}

	session.Get(ctx).AddFlash(session.FlashSuccess, services.MsgStudentAdded)
	ctx.Redirect(http.StatusSeeOther, PathIndex)
}

// UpdateForm shows the edit form of one student
func (sc *StudentController) UpdateForm(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	student, err := sc.studentService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleFormError(ctx, sc.logger, err, PathIndex)
		return
	}

	render(ctx, http.StatusOK, "update.html", gin.H{"title": "Edit student", "student": student})
}

// Update applies the edit form. Photo unlink failures are shown as warnings
// and do not stop the update.
func (sc *StudentController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	back := fmt.Sprintf("/update/%d", id)

	in, err := sc.bindInput(ctx)
	if err != nil {
		middleware.HandleFormError(ctx, sc.logger, err, back)
		return
	}

	_, warnings, err := sc.studentService.Update(ctx.Request.Context(), id, in)
	middleware.FlashWarnings(ctx, warnings)
	if err != nil {
		middleware.HandleFormError(ctx, sc.logger, err, back)
		return
	}

	session.Get(ctx).AddFlash(session.FlashSuccess, services.MsgStudentUpdated)
	ctx.Redirect(http.StatusSeeOther, PathIndex)
}

// Delete removes a student and its photo
func (sc *StudentController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	warnings, err := sc.studentService.Delete(ctx.Request.Context(), id)
	middleware.FlashWarnings(ctx, warnings)
	if err != nil {
		middleware.HandleFormError(ctx, sc.logger, err, PathIndex)
		return
	}

	session.Get(ctx).AddFlash(session.FlashSuccess, services.MsgStudentDeleted)
	ctx.Redirect(http.StatusSeeOther, PathIndex)
}
