// Package server is the makevid job queue: jobs are stored in sqlite,
// processed by a worker pool and reported over HTTP and websocket.
package server

type Job struct {
	ID            int64  `json:"id"`
	Folder        string `json:"folder"`
	Intermediates int    `json:"intermediates"`
	OutputVideo   string `json:"outputVideo"`
	Upscale       bool   `json:"upscale"`
	Done          bool   `json:"done"`
}

type FailedJob struct {
	ID            int64  `json:"id"`
	EncoderOutput string `json:"encoderOutput"`
	Error         string `json:"error"`
	Job           Job    `json:"job"`
}
