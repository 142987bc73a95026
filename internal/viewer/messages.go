package viewer

// User-facing texts.
const (
	MsgMissingID            = "Введите серийный номер."
	MsgDownloadHTTPError    = "Ошибка при скачивании телеметрии: "
	MsgDownloadNetworkError = "Ошибка сети при скачивании телеметрии: "
	MsgNoEvents             = "No events found."
)

// EventsHeader is the fixed header row of the events table.
var EventsHeader = []string{"Timestamp", "Type", "Event"}

// DefaultTimeLayout formats event timestamps the way a ru-RU browser does.
const DefaultTimeLayout = "02.01.2006, 15:04:05"

// TelemetryFileName returns the download name for the telemetry of id.
func TelemetryFileName(id string) string {
	return "telemetry_" + id + ".csv"
}
