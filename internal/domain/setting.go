package domain

// Setting is one persisted key/value pair.
type Setting struct {
	Key            string `json:"key"`
	Value          string `json:"value"`
	UpdatedAtUnixM int64  `json:"updated_at_unix,string"` // JSON string for int64
}
