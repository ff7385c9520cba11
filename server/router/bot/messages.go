package bot

const (
	msgWelcome       = "Hi! Welcome to summy"
	msgUnauthorized  = "You are not authorized to use this command."
	msgSetUsage      = "Please provide valid configuration, i.e., /set <heb/eng> <word limit> [max chars]."
	msgSetOK         = "Configuration updated successfully."
	msgSetFailed     = "Failed to update configuration."
	msgGetFailed     = "Failed to retrieve configuration."
	msgSummUsage     = "Please provide a URL after the command, e.g., /summ <URL>."
	msgUploadPDF     = "Please upload the PDF file."
	msgInvalidPDF    = "Please upload a valid PDF file."
	msgRespUsage     = "Please provide a response for the last summary, e.g., /resp <RESPONSE>."
	msgNoLastArticle = "Failed to retrieve the last article. Please try summarizing a new article."
	msgShutdown      = "Shutting down the bot. Goodbye!"

	msgExtractFailed   = "Failed to extract text from the source. Please check the link or file."
	msgSummaryFailed   = "Failed to generate a summary. Please try again later."
	msgStorageFailed   = "Failed to access bot storage. Please try again later."
	msgFileTooLarge    = "The file is too large. Bots can download files up to 20 MB."
	msgDownloadFailed  = "Failed to download the file. Please try again."
	msgInternalFailure = "Something went wrong. Please try again."
)

const helpText = "Summy is at your service!\n" +
	"- /summ <url>: Summarize the article at the given URL.\n" +
	"- /summ pdf: Summarize an uploaded PDF file.\n" +
	"- /resp <response>: Get a follow-up response to the last article.\n" +
	"- /set <lang> <word limit> [max chars]: Set configuration.\n" +
	"- /get: Print configuration.\n" +
	"- /shut: Shut down the bot (authorized users only)."
