// Package mqtt is the resolver's message bus transport.
//
// It wraps paho.mqtt.golang with:
//   - connection to the broker with auto-reconnect
//   - tracked subscriptions restored after reconnect
//   - a retained online/offline status with a Last Will and Testament
//   - builders for the resolver's topic tree
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        subject, _ := mqtt.SubjectFromTopic(topic)
//	        log.Printf("%s: %s", subject, payload)
//	        return nil
//	    })
//
//	err = client.Publish(mqtt.Topics{}.BroadcastDiscover(), payload, 1, false)
package mqtt
