// Package diningtypes defines core architectural interfaces for the dining hall guide.
// This file contains the service and registry contracts shared by all services.
package diningtypes

// Service defines the interface for services that provide specific functionality.
// Services are initialized at startup and can be accessed by the shell and the server.
type Service interface {
	Name() string
	Initialize() error
}

// ServiceRegistry manages the registration and retrieval of services.
type ServiceRegistry interface {
	GetService(name string) (Service, error)
	RegisterService(service Service) error
}
