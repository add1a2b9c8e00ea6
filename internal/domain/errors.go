package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz (or its question set) could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates no user record exists for the given key.
	ErrUserNotFound = errors.New("user not found")
	// ErrResultNotFound indicates no result has been submitted for (quiz, user).
	ErrResultNotFound = errors.New("result not found")
	// ErrUsernameTaken is returned when a claim races a prior reservation.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUsername is returned for usernames failing format validation.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidState is returned when a session operation is attempted outside its valid state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrUnauthenticated is returned when an operation requires a resolved user.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the caller's role does not permit the operation.
	ErrForbidden = errors.New("operation not permitted for role")
	// ErrQuestionLocked is returned when re-answering a question that already has a recorded answer.
	ErrQuestionLocked = errors.New("question already answered")
	// ErrAnswerRequired is returned on a manual advance with no recorded answer.
	ErrAnswerRequired = errors.New("answer required before advancing")
	// ErrNoQuestions blocks publishing a quiz without questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrOptionOutOfRange is returned when a selected option index is not a valid option.
	ErrOptionOutOfRange = errors.New("option index out of range")
)
