package entity

import (
	"encoding/json"
	"fmt"
)

type decodeFunc func(raw json.RawMessage) (Body, error)

// Registry maps Header.Type tags to body decoders. Each consuming service
// builds its own, listing only the kinds it understands.
type Registry struct {
	decoders map[string]decodeFunc
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]decodeFunc)}
}

// Register adds T under the tag returned by its MessageType.
func Register[T Body](r *Registry) {
	var zero T
	r.decoders[zero.MessageType()] = func(raw json.RawMessage) (Body, error) {
		var body T
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		return body, nil
	}
}

func (r *Registry) Knows(messageType string) bool {
	_, ok := r.decoders[messageType]
	return ok
}

type wireMessage struct {
	Header Header          `json:"header"`
	Body   json.RawMessage `json:"body"`
}

// DecodeHeader reads only the header of a wire message.
func DecodeHeader(data []byte) (Header, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if w.Header.Type == "" {
		return Header{}, fmt.Errorf("%w: missing header type", ErrMalformedMessage)
	}
	return w.Header, nil
}

// Decode parses a wire message, resolving the body type through the registry.
func (r *Registry) Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	body, err := r.DecodeBody(w.Header.Type, w.Body)
	if err != nil {
		return Message{}, err
	}
	return Message{Header: w.Header, Body: body}, nil
}

// DecodeBody parses a bare body of the given type.
func (r *Registry) DecodeBody(messageType string, raw []byte) (Body, error) {
	decode, ok := r.decoders[messageType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType)
	}
	body, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s body: %v", ErrMalformedMessage, messageType, err)
	}
	return body, nil
}

// Encode renders msg in wire form.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Header.Type, err)
	}
	return data, nil
}

func registerOrderEvents(r *Registry) {
	Register[OrderCreated](r)
	Register[OrderCanceled](r)
	Register[OrderInProgress](r)
	Register[TipAddedToOrder](r)
	Register[OrderCompleted](r)
	Register[OrderProcessingError](r)
}

func registerDeliveryEvents(r *Registry) {
	Register[DeliveryCreated](r)
	Register[DeliveryCanceled](r)
	Register[FoodInPreparation](r)
	Register[DeliveryManAssigned](r)
	Register[DeliveryManUnAssigned](r)
	Register[FoodIsReady](r)
	Register[FoodWasPickedUp](r)
	Register[FoodDelivered](r)
	Register[TipAddedToDelivery](r)
	Register[DeliveryProcessingError](r)
}

// OrderLogRegistry decodes the ordering service's own log.
func OrderLogRegistry() *Registry {
	r := NewRegistry()
	registerOrderEvents(r)
	return r
}

// DeliveryLogRegistry decodes the delivery service's own log and is what the
// read-model projector consumes.
func DeliveryLogRegistry() *Registry {
	r := NewRegistry()
	registerDeliveryEvents(r)
	return r
}

// OrderingRegistry lists what the ordering service consumes from the channel.
func OrderingRegistry() *Registry {
	r := NewRegistry()
	Register[CreateOrder](r)
	Register[CancelOrder](r)
	Register[AddTip](r)
	Register[FoodInPreparation](r)
	Register[FoodDelivered](r)
	return r
}

// DeliveryRegistry lists what the delivery service consumes from the channel.
func DeliveryRegistry() *Registry {
	r := NewRegistry()
	Register[OrderCreated](r)
	Register[OrderCanceled](r)
	Register[TipAddedToOrder](r)
	Register[PrepareFood](r)
	Register[AssignDeliveryMan](r)
	Register[UnAssignDeliveryMan](r)
	Register[FoodReady](r)
	Register[PickUpFood](r)
	Register[DeliverFood](r)
	return r
}

// CommandRegistry lists every client command accepted by the inbox.
func CommandRegistry() *Registry {
	r := NewRegistry()
	Register[CreateOrder](r)
	Register[CancelOrder](r)
	Register[AddTip](r)
	Register[PrepareFood](r)
	Register[AssignDeliveryMan](r)
	Register[UnAssignDeliveryMan](r)
	Register[FoodReady](r)
	Register[PickUpFood](r)
	Register[DeliverFood](r)
	return r
}
