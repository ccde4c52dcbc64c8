// Package mail は取引メールの非同期送信を提供します。
package mail

import "fmt"

const taskTypeMail = "mail:send"

// Template はメール文面の種別です。
type Template string

const (
	TemplateWelcome  Template = "welcome"
	TemplateFarewell Template = "farewell"
)

// Message はキューへ投入するメール送信依頼です。
type Message struct {
	To       string   `json:"to"`
	Name     string   `json:"name"`
	Template Template `json:"template"`
}

// render はテンプレートから件名と本文を組み立てます。
func render(msg *Message) (subject, body string, err error) {
	switch msg.Template {
	case TemplateWelcome:
		return "Welcome to our app!",
			fmt.Sprintf("Welcome, %s. Thanks for joining us!", msg.Name), nil
	case TemplateFarewell:
		return "Cancelation email",
			fmt.Sprintf("Hey, %s. Happy you chose to spend that time with us.", msg.Name), nil
	default:
		return "", "", fmt.Errorf("unknown mail template: %s", msg.Template)
	}
}
