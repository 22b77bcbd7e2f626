// Package mqtt provides MQTT client connectivity for the exporter.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Topic subscriptions with wildcard support
//   - Connection health monitoring
//
// # Architecture
//
// The exporter is a pure consumer: it subscribes to the topic patterns
// derived from the configured metric definitions and hands every received
// (topic, payload) pair to the metrics bridge. It never publishes.
//
//	MQTT Broker → Client → metrics.Bridge → metrics.Store → /metrics
//
// # Security Considerations
//
//   - TLS is recommended for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("home/+/temperature", 0,
//	    func(topic string, payload []byte) error {
//	        return bridge.HandleMessage(topic, payload)
//	    })
package mqtt
