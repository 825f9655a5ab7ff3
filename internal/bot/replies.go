package bot

import "github.com/go-telegram/bot/models"

// Reply-keyboard button labels. Messages matching these are menu
// presses, not edit instructions.
const (
	btnUpload = "Upload image"
	btnCancel = "Cancel operation"
)

const (
	msgWelcome = "How to use:\n" +
		"1. Send an image as a document (not as a photo)\n" +
		"2. Describe what should be changed\n" +
		"3. Receive the edited image"
	msgHelp = "Rules:\n" +
		"- Send images as a document only\n" +
		"- Supported formats: JPG, PNG, WEBP\n" +
		"- Maximum size: 20MB\n\n" +
		"Commands:\n" +
		"/start - main menu\n" +
		"/help - this help\n" +
		"/cancel - cancel the current operation\n\n" +
		"To send a document: tap the attachment icon, choose File, pick the image."
	msgUploadHint = "Send the image as a document (not as a photo):\n" +
		"tap the attachment icon, choose File, pick the image."
	msgUnsupportedFormat = "Unsupported file format. Supported: JPG, PNG, WEBP"
	msgFileTooLarge      = "File is too large. Maximum size: 20MB"
	msgDownloading       = "Downloading image..."
	msgAwaitInstruction  = "Image received. Now describe what should be changed.\n\n" +
		`For example: "Change the title from Draft to Final"`
	msgUploadFirst   = "Send an image as a document first."
	msgProcessing    = "Processing image...\n\nThis can take a while."
	msgEditDone      = "Done! The image has been edited."
	msgWhatNext      = "What's next?"
	msgBusy          = "Still working on your previous request. Please wait for it to finish."
	msgCancelled     = "Operation cancelled."
	msgNothingActive = "No active operations."
	msgPhotoWarning  = "Telegram compresses photos, which loses the detail needed for precise edits.\n\n" +
		"Please resend the image as a document."
	msgEditFailed = "Could not extract the edited image from the response. Try rephrasing your request."
	msgTryAgain   = "Try rephrasing your request more precisely."
	msgExamples   = "Example requests:\n\n" +
		`1. "Change the title from Draft to Final"` + "\n" +
		`2. "Replace the date 07.02.2033 with 08.09.2055"` + "\n" +
		`3. "Remove the text in the lower right corner"` + "\n\n" +
		"Tips: be specific, name the exact location, spell out the new value."
	msgUnknownCommand = "Unknown command. Use /help to see what I can do."
)

var mainKeyboard = &models.ReplyKeyboardMarkup{
	Keyboard: [][]models.KeyboardButton{
		{{Text: btnUpload}},
		{{Text: btnCancel}},
	},
	ResizeKeyboard: true,
}

var editingKeyboard = &models.ReplyKeyboardMarkup{
	Keyboard: [][]models.KeyboardButton{
		{{Text: btnCancel}},
	},
	ResizeKeyboard: true,
}

var examplesInline = &models.InlineKeyboardMarkup{
	InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "Show examples", CallbackData: "examples"}},
	},
}

var resultInline = &models.InlineKeyboardMarkup{
	InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "Upload a new image", CallbackData: "upload_new"}},
	},
}

var retryInline = &models.InlineKeyboardMarkup{
	InlineKeyboard: [][]models.InlineKeyboardButton{
		{
			{Text: "Try again", CallbackData: "try_again"},
			{Text: "Cancel", CallbackData: "cancel_operation"},
		},
	},
}

var photoHelpInline = &models.InlineKeyboardMarkup{
	InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "How to send a document?", CallbackData: "help_document"}},
	},
}
