package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации, по которому она привязана.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues возвращает очереди уведомлений сервиса.
func NotificationQueues(resetQueue, resetRoutingKey string) []QueueConfig {
	return []QueueConfig{
		{QueueName: resetQueue, RoutingKey: resetRoutingKey},
	}
}
