// Package mailer describes sending-domain identities at an email provider.
//
// A production deployment registers its mail-from host as a sending domain;
// the provider answers with the DKIM and return-path records the customer
// publishes. Provider adapters live in subpackages, see [resend].
package mailer
