package apperr

// Domain errors shared by repositories and handlers.
var (
	ErrUserNotFound          = NotFound("user not found")
	ErrEmailTaken            = AlreadyExists("email is already registered")
	ErrHandleTaken           = AlreadyExists("handle is already taken")
	ErrInvalidHandle         = InvalidArg("handle must be 3-32 chars, lowercase letters, numbers and underscores only")
	ErrInvalidDisplayName    = InvalidArg("display name cannot be empty")
	ErrInvalidCredentials    = Unauthorized("invalid email or password")
	ErrEmptyMessageBody      = InvalidArg("message body cannot be empty")
	ErrConversationNotFound  = NotFound("conversation not found")
	ErrMessageNotFound       = NotFound("message not found")
	ErrNotParticipant        = Forbidden("not a conversation participant")
	ErrNotConnected          = Forbidden("users are not connected")
	ErrRequestNotFound       = NotFound("friend request not found")
	ErrAlreadyResolved       = Conflict("friend request already resolved")
	ErrRequestAlreadyPending = Conflict("a friend request is already pending")
	ErrAlreadyConnected      = Conflict("users are already connected")
	ErrSelfRequest           = InvalidArg("cannot send a friend request to yourself")
)
