package chat

import "github.com/atotto/clipboard"

var copyToClipboard = clipboard.WriteAll
