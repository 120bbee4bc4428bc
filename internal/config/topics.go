package config

const (
	// TopicBriefTask is the NSQ topic for upload-triggered pipeline tasks.
	TopicBriefTask = "brief.task"
)
