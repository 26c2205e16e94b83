package mqtt

import (
	"fmt"
)

// Subscribe routes messages matching topic to handler. The topic may use
// the + and # wildcards:
//
//	err := client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        dt, err := mqtt.ParseDeviceTopic(topic)
//	        ...
//	    })
//
// Subscribing again to the same topic replaces the handler.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	case !c.IsConnected():
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, c.deliver(handler))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: %w after %v", ErrSubscribeFailed, topic, ErrTimeout, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe stops delivery for topic, which must match the string given
// to Subscribe. Messages already in flight may still arrive.
func (c *Client) Unsubscribe(topic string) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case !c.IsConnected():
		return ErrNotConnected
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: %w after %v", ErrUnsubscribeFailed, topic, ErrTimeout, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, err)
	}
	return nil
}
