// Package clock provides a tiny time abstraction.
//
// The SMTP relay stamps the Date header through Clocker so tests can pin it.
package clock
