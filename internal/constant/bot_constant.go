package constant

const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandReset = "reset"
)

// KeyboardLayout is the reply keyboard attached to every outgoing message.
var KeyboardLayout = [][]string{
	{"/start", "/help"},
	{"/reset"},
}

const (
	WelcomeMessage = "👋 Привет! Я профориентационный бот Поволжского государственного университета сервиса.\n\n" +
		"Я помогу вам выбрать подходящую программу обучения, задав несколько вопросов о ваших интересах и предпочтениях.\n\n" +
		"Давайте начнем! Расскажите немного о себе и о том, какие предметы вам нравились в школе?"

	ResetMessage = "История беседы сброшена. Давайте начнем заново! Расскажите о своих интересах и предпочтениях."

	// HelpMessage is rendered with Markdown.
	HelpMessage = "🔍 *Помощь по использованию бота*\n\n" +
		"Я профориентационный бот ТолГАС, который поможет вам выбрать подходящую программу обучения.\n\n" +
		"*Доступные команды:*\n" +
		"/start - Начать новую беседу\n" +
		"/reset - Сбросить историю беседы и начать заново\n" +
		"/help - Показать это сообщение\n\n" +
		"Просто отвечайте на мои вопросы, и в конце беседы я предложу вам наиболее подходящие программы обучения в ПВГУС."
)

// Apologies shown after a reply attempt fails for good.
const (
	RateLimitedMessage     = "Извините, сервер сейчас перегружен. Пожалуйста, повторите запрос через несколько минут."
	ServerErrorMessage     = "Извините, возникла ошибка на сервере. Пожалуйста, попробуйте позже."
	TimeoutMessage         = "Извините, сервер не отвечает. Ваш запрос слишком сложный или возникли проблемы с соединением. Пожалуйста, попробуйте еще раз или упростите ваш вопрос."
	ConnectionErrorMessage = "Извините, возникли проблемы с подключением к серверу. Пожалуйста, проверьте ваше соединение и попробуйте позже."
	ClientErrorMessage     = "Извините, возникла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
	UnknownErrorMessage    = "Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте еще раз позже или обратитесь к администратору."
)

const (
	EventTopic = "bot_events"

	EventSessionCreated = "SESSION_CREATED"
	EventSessionReset   = "SESSION_RESET"
	EventSessionsReaped = "SESSIONS_REAPED"
	EventReplySucceeded = "REPLY_SUCCEEDED"
	EventReplyFailed    = "REPLY_FAILED"
)
