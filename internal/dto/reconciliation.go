package dto

// ReconciliationResult is the flat JSON contract of the daily closing job.
type ReconciliationResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Processed  int    `json:"procesados"`
	Date       string `json:"fecha,omitempty"`
	ClosedTime string `json:"hora,omitempty"`
}
