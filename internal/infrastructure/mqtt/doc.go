// Package mqtt provides MQTT client connectivity for Ember UI.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is Ember UI's integration surface towards external automation.
// Control value changes are published retained to emberui/state/<id>;
// anything publishing to emberui/command/<id> moves the matching
// control exactly as if a panel had dragged it.
//
//	Panels ↔ Ember UI ↔ MQTT Broker ↔ External automation
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all inbound control commands
//	err = client.Subscribe(mqtt.Topics{}.AllControlCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        id, err := mqtt.ControlIDFromTopic(topic)
//	        ...
//	    })
//
//	// Publish a retained state update
//	client.PublishRetained(mqtt.Topics{}.ControlState(4), []byte(`{"value":75}`))
package mqtt
