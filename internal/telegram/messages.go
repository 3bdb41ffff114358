package telegram

// User-facing texts, kept verbatim from the original deployment.
const (
	msgStartFmt = "Привет, %s!\n" +
		"Я - A-Vision, бот для описания медиа. Просто отправьте мне фото, видео или голосовое сообщение."

	msgStop = "Бот будет остановлен в этом чате. Чтобы запустить снова, используйте /start."

	msgHelp = "🤖 A-Vision - бот для помощи людям с нарушениями зрения\n" +
		"\nДоступные команды:\n" +
		"/start - активировать бота\n" +
		"/stop - деактивировать бота\n" +
		"/help - показать это сообщение\n" +
		"\nКак использовать:\n" +
		"1. Активируйте бота с помощью команды /start\n" +
		"2. Отправьте любой медиа-файл (фото, видео)\n" +
		"3. Бот опишет содержимое файла"

	msgGroupWelcome = "Теперь я могу описывать медиа здесь!\n\n" +
		"Чтобы использовать меня, просто отправь медиа в этот чат."

	msgUnsupported = "Я могу обрабатывать только фото, видео и голосовые сообщения. " +
		"Пожалуйста, отправьте медиа поддерживаемого формата."
)
