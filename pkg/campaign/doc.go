// Package campaign runs one mailing: it reads contacts from a source, renders
// each contact's message and hands it to a single SMTP session, recording one
// outcome per contact.
package campaign
