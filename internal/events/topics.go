package events

const (
	TopicConnStatus       = "conn.status"
	TopicChannelMessage   = "channel.message"
	TopicMetricsSnapshot  = "metrics.snapshot"
	TopicDeviceUpdate     = "device.update"
	TopicDeviceDiscovered = "device.discovered"
	TopicSpeedtestResult  = "speedtest.result"
	TopicLogLine          = "log.line"
	TopicNotice           = "notice"
	TopicSessionExpired   = "session.expired"
	TopicFirmwareUpdate   = "firmware.update"
)
