package conversation

// Commands recognised by the bot. Matching is exact on the whole message.
const (
	cmdGoals  = "/goals"
	cmdCreate = "/create"
	cmdCancel = "/cancel"
)

// User-facing message texts.
const (
	msgVerifyCode      = "Verify your account on the site with this code: %s"
	msgGoalsHeader     = "Your goals:"
	msgNoGoals         = "You have no goals yet"
	msgChooseCategory  = "Choose a category:"
	msgNoCategories    = "You have no categories yet"
	msgEnterGoalTitle  = "Enter a goal title"
	msgCanceled        = "Operation canceled"
	msgUnknownCategory = "Unknown category"
	msgUnknownCommand  = "Unknown command"
	msgGoalCreated     = "Goal created:\n%s/goals?goal=%d"
	msgTryAgain        = "Something went wrong, please try again"
)
