package app

import (
	"fmt"
	"strings"

	"legaldesk/internal/cache"
	"legaldesk/internal/model"
)

const systemInstruction = "Ты - профессиональный ИИ-ассистент адвоката. Ты помогаешь анализировать дела, документы и давать юридические советы. " +
	"Используй всю доступную информацию о деле, включая загруженные документы и их OCR результаты. Будь конкретным и полезным в своих ответах."

const (
	summaryNoDocuments = "Нет загруженных документов"
	summaryNotReady    = "Документы загружены, но OCR еще не завершен"
	keyInfoNoData      = "Нет данных"
	fieldsNotFound     = "Не найдены"
	defaultBucket      = "Документ"
	textPreviewRunes   = 200
)

type documentBucket struct {
	name     string
	keywords []string
}

// documentBuckets are checked in order; the first keyword hit wins.
var documentBuckets = []documentBucket{
	{name: "Судебные документы", keywords: []string{"повестка", "судебн"}},
	{name: "Справки о доходах", keywords: []string{"справка", "доход"}},
	{name: "Удостоверения личности", keywords: []string{"паспорт", "удостоверение"}},
	{name: "Договоры", keywords: []string{"договор", "соглашение"}},
	{name: "Свидетельства", keywords: []string{"свидетельство", "свидетель"}},
}

func classifyDocument(originalName string) string {
	name := strings.ToLower(originalName)
	for _, b := range documentBuckets {
		for _, kw := range b.keywords {
			if strings.Contains(name, kw) {
				return b.name
			}
		}
	}
	return defaultBucket
}

// keyInfo joins the first three non-empty lines of text.
func keyInfo(text *string) string {
	if text == nil || strings.TrimSpace(*text) == "" {
		return keyInfoNoData
	}
	var lines []string
	for _, line := range strings.Split(*text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 3 {
			break
		}
	}
	return strings.Join(lines, " | ")
}

// documentSummary groups processed photos by bucket, buckets in order of
// first appearance.
func documentSummary(photos []cache.PhotoContext) string {
	if len(photos) == 0 {
		return summaryNoDocuments
	}

	var order []string
	groups := make(map[string][]cache.PhotoContext)
	processed := 0
	for _, p := range photos {
		if p.RawText == nil {
			continue
		}
		processed++
		bucket := classifyDocument(p.OriginalName)
		if _, ok := groups[bucket]; !ok {
			order = append(order, bucket)
		}
		groups[bucket] = append(groups[bucket], p)
	}
	if processed == 0 {
		return summaryNotReady
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Загружено %d документов (%d обработано):\n", len(photos), processed)
	for _, bucket := range order {
		docs := groups[bucket]
		fmt.Fprintf(&b, "\n%s (%d шт.):\n", bucket, len(docs))
		for i, d := range docs {
			fmt.Fprintf(&b, "  %d. %s - %s\n", i+1, d.OriginalName, keyInfo(d.RawText))
		}
	}
	return b.String()
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// staticPrompt describes the case and its documents; it depends only on the
// case context.
func staticPrompt(cc *cache.CaseContext, summary string) string {
	var b strings.Builder
	c := cc.Case
	if c == nil {
		c = &model.Case{}
	}

	b.WriteString("Ты - ИИ-ассистент адвоката. У тебя есть информация о деле:\n\n")
	b.WriteString("ДЕЛО:\n")
	fmt.Fprintf(&b, "- Название: %s\n", c.Title)
	fmt.Fprintf(&b, "- Клиент: %s\n", c.ClientName)
	fmt.Fprintf(&b, "- Описание: %s\n", c.Description)
	fmt.Fprintf(&b, "- Тип: %s\n", c.CaseType)
	fmt.Fprintf(&b, "- Приоритет: %s\n", c.Priority)
	fmt.Fprintf(&b, "- Номер дела: %s\n", c.CaseNumber)

	fmt.Fprintf(&b, "\nДОКУМЕНТЫ (%d шт.):\n", len(cc.Photos))
	for i, p := range cc.Photos {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.OriginalName)
		if p.RawText != nil {
			b.WriteString("   - Статус OCR: Обработан\n")
			fmt.Fprintf(&b, "   - Текст: %s...\n", truncateRunes(*p.RawText, textPreviewRunes))
		} else {
			b.WriteString("   - Статус OCR: Не обработан\n")
		}
		writeList(&b, "   - Даты: ", p.ExtractedDates)
		writeList(&b, "   - Номера: ", p.ExtractedNumbers)
		writeList(&b, "   - Имена: ", p.ExtractedNames)
		writeList(&b, "   - Суммы: ", p.ExtractedAmounts)
	}

	b.WriteString("\nСВОДКА ДОКУМЕНТОВ:\n")
	b.WriteString(summary)
	b.WriteString("\n")

	s := cc.Summary
	b.WriteString("\nИЗВЛЕЧЕННЫЕ ДАННЫЕ:\n")
	fmt.Fprintf(&b, "- Даты: %s\n", joinOr(s.ExtractedDates, fieldsNotFound))
	fmt.Fprintf(&b, "- Номера: %s\n", joinOr(s.ExtractedNumbers, fieldsNotFound))
	fmt.Fprintf(&b, "- Имена: %s\n", joinOr(s.ExtractedNames, fieldsNotFound))
	fmt.Fprintf(&b, "- Суммы: %s\n", joinOr(s.ExtractedAmounts, fieldsNotFound))
	return b.String()
}

func writeList(b *strings.Builder, prefix string, values []string) {
	if len(values) == 0 {
		return
	}
	b.WriteString(prefix)
	b.WriteString(strings.Join(values, ", "))
	b.WriteString("\n")
}

// dynamicPrompt carries the conversation so far and the new question.
func dynamicPrompt(history []model.ChatMessage, question string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("ИСТОРИЯ ДИАЛОГА:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.MessageType, m.MessageText)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "ВОПРОС ПОЛЬЗОВАТЕЛЯ: %s\n\n", question)
	b.WriteString("Ответь как профессиональный адвокат, используя всю доступную информацию.\n")
	b.WriteString("Будь кратким, но информативным. Если нужно больше деталей, спроси уточняющие вопросы.")
	return b.String()
}
