package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/quiz"
)

// check-answer messages, as shown to students
const (
	msgIncompleteData   = "بيانات غير مكتملة"
	msgQuestionNotFound = "لم يتم العثور على السؤال"
)

type quizApi struct {
	svc      quiz.ServiceInterface
	validate *validator.Validate
	logger   core.Logger
}

func registerQuizAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc quiz.ServiceInterface,
	validate *validator.Validate,
	logger core.Logger,
) {
	api := quizApi{
		svc:      svc,
		validate: validate,
		logger:   logger,
	}

	// un-authed endpoints
	g.POST("/lab/check-answer", api.checkAnswer)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.GET("/labs/:labId/questions", api.query)
	ag.POST("/labs/:labId/questions", api.create, adminMiddleware())
	ag.PUT("/questions/:id", api.update, adminMiddleware())
	ag.DELETE("/questions/:id", api.destroy, adminMiddleware())
}

type checkAnswerError struct {
	Correct bool   `json:"correct"`
	Error   string `json:"error"`
}

// checkAnswer answers with its own error bodies (always carrying `correct: false`),
// so it does not go through the app error handler.
func (api *quizApi) checkAnswer(ctx echo.Context) error {
	var data quiz.CheckAnswerRequest
	err := ctx.Bind(&data)
	questionID := core.CleanString(string(data.QuestionID))
	if err != nil || questionID == "" || data.UserAnswer == nil {
		return ctx.JSON(http.StatusBadRequest, checkAnswerError{Error: msgIncompleteData})
	}

	res, err := api.svc.CheckAnswer(ctx.Request().Context(), questionID, *data.UserAnswer)
	if err != nil {
		if core.IsNotFound(err) {
			return ctx.JSON(http.StatusNotFound, checkAnswerError{Error: msgQuestionNotFound})
		}
		api.logger.Error("checking answer", errors.Wrap(err, "checking answer"), contextPerson(ctx))
		return ctx.JSON(http.StatusInternalServerError, checkAnswerError{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, res)
}

// query lists the lab's questions; only admins get the correct answers.
func (api *quizApi) query(ctx echo.Context) error {
	questions, err := api.svc.QueryQuestions(ctx.Request().Context(), ctx.Param("labId"))
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}

	if contextIsAdmin(ctx) {
		if questions == nil {
			questions = []quiz.Question{}
		}
		return ctx.JSON(http.StatusOK, questions)
	}

	public := make([]quiz.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, q.Public())
	}
	return ctx.JSON(http.StatusOK, public)
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.CreateQuestion(ctx.Request().Context(), ctx.Param("labId"), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *quizApi) update(ctx echo.Context) error {
	var data quiz.UpdateQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteQuestion(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}
