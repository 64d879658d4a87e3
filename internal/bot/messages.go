package bot

import (
	"fmt"
	"strings"

	"github.com/zulandar/territorio/internal/models"
)

// keycap renders a menu number as a keycap emoji.
func keycap(n int) string {
	return fmt.Sprintf("%d\uFE0F\u20E3", n)
}

func typeLabel(t models.TerritoryType) string {
	switch t {
	case models.TypeUrban:
		return "urbano"
	case models.TypeRural:
		return "rural"
	case models.TypeCommercial:
		return "comercial"
	}
	return string(t)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func msgLimitReached(name string, limit int, active []models.Assignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Irmão %s, você já atingiu o limite de %d %s.\n\n", name, limit, plural(limit, "território", "territórios"))
	fmt.Fprintf(&b, "%s atuais:\n", plural(limit, "Território", "Territórios"))
	for _, a := range active {
		fmt.Fprintf(&b, "- %s\n", a.Territory.Name)
	}
	b.WriteString("\nPor favor, devolva um antes de solicitar outro.")
	return b.String()
}

func msgTypeMenu(name string) string {
	return fmt.Sprintf("Olá %s! Que tipo de território você prefere?\n\n%s Urbano\n%s Rural\n%s Comercial\n\nResponda com o número.",
		name, keycap(1), keycap(2), keycap(3))
}

func msgInvalidType() string {
	return "Opção inválida. Digite *1* (Urbano), *2* (Rural) ou *3* (Comercial)."
}

func msgNoneFound(t models.TerritoryType, requestCommand string) string {
	return fmt.Sprintf("😕 Não encontrei territórios do tipo *%s* disponíveis.\n\nPor favor, inicie o processo novamente com o comando *%s* e escolha outro tipo ou tente novamente mais tarde.",
		typeLabel(t), requestCommand)
}

func msgMapMenu(options []models.Territory) string {
	var b strings.Builder
	b.WriteString("Encontrei estas opções:\n")
	for i, t := range options {
		fmt.Fprintf(&b, "\n%s *%d*", keycap(i+1), t.Number)
		if t.Name != "" {
			fmt.Fprintf(&b, " (%s)", t.Name)
		}
	}
	b.WriteString("\n\nQual você prefere? Digite 1 ou 2.")
	return b.String()
}

func msgInvalidMap() string {
	return "Opção inválida. Escolha uma das opções acima."
}

func msgTaken(territoryName string) string {
	if territoryName == "" {
		return "⚠️ Este território acabou de ser pego por outro irmão. Tente novamente."
	}
	return fmt.Sprintf("⚠️ O território %s acabou de ser pego por outro irmão. Tente novamente.", territoryName)
}

func msgTerritoryLookupFailed() string {
	return "Erro ao buscar território."
}

func msgAssigned(territoryName, managerName, date, returnCommand string) string {
	return fmt.Sprintf("🗺️ *Novo Território Designado*\n\n📍 *%s*\n👤 Dirigente: %s\n📅 Data: %s\n\nBom trabalho! Digite *%s* aqui quando terminar.",
		territoryName, managerName, date, returnCommand)
}

func msgNothingToReturn() string {
	return "⚠️ Você não possui territórios ativos para devolver."
}

func msgReturnSingle(territoryName string) string {
	return fmt.Sprintf("Devolvendo *%s*.\n\nInforme o motivo:\n%s Concluído\n%s Não trabalhado", territoryName, keycap(1), keycap(2))
}

func msgReturnList(active []models.Assignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Você tem %d territórios. Qual deseja devolver?\n", len(active))
	for i, a := range active {
		fmt.Fprintf(&b, "\n%s *%s*", keycap(i+1), a.Territory.Name)
	}
	return b.String()
}

func msgInvalidReturn() string {
	return "Opção inválida. Tente novamente."
}

func msgReasonMenu() string {
	return fmt.Sprintf("Agora, informe o motivo da devolução:\n\n%s Concluído\n%s Não trabalhado", keycap(1), keycap(2))
}

func msgInvalidReason() string {
	return "Opção inválida. Digite *1* (Concluído) ou *2* (Não trabalhado)."
}

func msgReturnLookupFailed() string {
	return "Erro ao encontrar o território para devolução. Tente novamente."
}

func msgReturned(managerName, territoryName string, completed bool) string {
	outcome := "Não trabalhado"
	if completed {
		outcome = "Concluído"
	}
	return fmt.Sprintf("✅ Irmão %s, território *%s* devolvido como *%s* com sucesso!", managerName, territoryName, outcome)
}

func msgReminder(managerName, territoryName, since, returnCommand string) string {
	return fmt.Sprintf("⏰ Olá %s! O território *%s* está com você desde %s.\n\nSe já terminou, envie *%s* no grupo para devolvê-lo.",
		managerName, territoryName, since, returnCommand)
}
