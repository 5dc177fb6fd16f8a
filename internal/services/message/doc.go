// Package message owns the message timelines: the main mesh timeline,
// per-channel timelines and per-conversation private chats.
//
// Every mutation publishes a fresh slice or map into conversation.State, so
// readers never observe a timeline being appended to.
package message
