package synthesis

import "github.com/benvon/smart-planner/internal/models"

var supportLines = map[models.Mood]string{
	models.MoodStressed:   "Stresli hissettiğini anlıyorum. Derin bir nefes al, birlikte günü biraz hafifletelim.",
	models.MoodSad:        "Üzgün hissetmen çok normal. Yanındayım, sana iyi gelebilecek birkaç şey önereyim.",
	models.MoodTired:      "Yorgun olduğunu duyuyorum. Bugün kendine biraz dinlenme alanı açmaya ne dersin?",
	models.MoodHappy:      "Mutlu olmana çok sevindim! Bu güzel enerjiyi sürdürecek fikirlerim var.",
	models.MoodExcited:    "Heyecanın bana da geçti! Bu enerjiyi değerlendirebileceğin birkaç öneri hazırladım.",
	models.MoodEnergetic:  "Enerjin yüksek görünüyor, harika! Onu iyi kullanabileceğin fikirler sunayım.",
	models.MoodRelaxed:    "Rahat hissetmen ne güzel. Bu huzuru koruyacak sakin önerilerim var.",
	models.MoodSocial:     "Sosyal bir gün geçirmek istiyor gibisin. İnsanlarla buluşabileceğin yerler önereyim.",
	models.MoodProductive: "Üretken hissetmen harika. Odaklanmanı destekleyecek birkaç önerim var.",
	models.MoodCreative:   "Yaratıcı bir ruh halindesin! İlham verebilecek birkaç etkinlik önereyim.",
}

const neutralSupportLine = "Nasıl hissettiğini paylaştığın için teşekkürler. Sana iyi gelebilecek birkaç şey önereyim."

// SupportLine is the fixed empathy line for mood.
func SupportLine(mood models.Mood) string {
	if line, ok := supportLines[mood]; ok {
		return line
	}
	return neutralSupportLine
}
