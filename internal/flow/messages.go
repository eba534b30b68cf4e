package flow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
	"github.com/rabota-krsk/rabota-bot/internal/pricing"
)

// Callback actions routed through HandleAction. Slot and payment actions
// carry a numeric suffix.
const (
	ActionMainMenu     = "main_menu"
	ActionInfoAccepted = "info_accepted"

	ActionMenuAds     = "menu_advertisement"
	ActionMenuJobs    = "menu_job"
	ActionMenuBalance = "menu_balance"
	ActionMenuShop    = "menu_shop"

	ActionJobSearchEmployee = "job_search_employee"
	ActionJobSearchWork     = "job_search_work"

	ActionFirmTypePrefix = "firm_type_"
	ActionBackToFirmType = "back_to_firm_type"

	ActionReviewPublication  = "review_publication"
	ActionPublishImmediately = "publish_immediately"

	ActionAutoPosting       = "auto_posting"
	ActionFrequencyDaily    = "frequency_daily"
	ActionFrequencyWeekly   = "frequency_weekly"
	ActionWeekdayPrefix     = "weekday_"
	ActionBackToTimeInput   = "back_to_time_input"
	ActionBackToRepetitions = "back_to_repetitions"

	ActionDelayedPublication = "delayed_publication"
	ActionSlotPrefix         = "delayed_slot_"
	ActionRemoveSlotPrefix   = "remove_delayed_slot_"
	ActionRetryDateTime      = "retry_datetime_input"
	ActionConfirmDelayed     = "confirm_delayed_publication"

	ActionShopAds   = "shop_advertisement"
	ActionShopJobs  = "shop_job"
	ActionPayPrefix = "pay_"

	ActionAdminStopWordsList  = "admin_stop_words_list"
	ActionAdminStopWordsAdd   = "admin_stop_words_add"
	ActionAdminStopWordsClear = "admin_stop_words_clear"
	ActionAdminCreatePub      = "admin_create_publication"
	ActionAdminBack           = "admin_back"
	ActionAdminCancel         = "admin_cancel"
)

const (
	msgWelcomeUser = `Здравствуйте уважаемые коллеги, работодатели и сотрудники.
Данный бот предназначен для размещения в группе
«Работа Красноярский край» платных публикаций объявлений о работе, поиске работы и сотрудников, а также размещения вашей рекламы.
Сотни специальностей и вакансий, а так же сотни сотрудников желающих с вами работать в одной команде.
Размещайте свой пост по поиску сотрудников и предложений открытых вакансий, также предложение соискателей по поиску работы.
Будем рады размещению ваших постов и рекламных объявлений. `

	msgWelcomeAdmin = "🔧 Добро пожаловать в административную панель!\nВыберите действие:"

	msgChooseAction = "Выберите действие:"

	msgChooseJobKind = "Выберите тип объявления:"

	msgChooseFirmType = "От какого лица будет идти размещение:"

	msgEnterFirmName = "Введите название фирмы:"

	msgEnterAdText = "Введите текст для объявления:"

	msgEnterJobTitleOffer = `Введите название вакансии/специальности на которую ищите специалиста:
Можете воспользоваться сервисом для просмотра наименований профессий https://окпдтр.рф/`

	msgEnterJobTitleSearch = `Введите название вакансии/специальности на которую хотите устроиться:
Можете воспользоваться сервисом для просмотра наименований профессий https://окпдтр.рф/`

	msgEnterWorkerCount   = "Укажите требуемое количество работников по выбранной специальности:"
	msgEnterWorkPeriodJob = "На какой период времени требуются сотрудники?"
	msgEnterWorkPeriod    = "На какой период требуется работа?"
	msgEnterConditions    = "Опишите место работы, характер, условия:"
	msgEnterRequirements  = "Опишите требования к претендентам:"
	msgEnterSalary        = "Укажите размер зп и условия:"
	msgEnterContacts      = "Укажите ваш(и) контакт(ы), либо нажмите на кнопку для автоматической отправки:"

	msgStopWordsFound = "В вашем объявлении были найдены стоп слова, введите текст объявления заново."
	msgReviewPrompt   = "Проверьте публикацию:"

	msgEnterSlotDateTime = "Пришлите время для автопубликации, в формате: дд.мм.гггг чч:мм"
	msgChooseSlot        = "Выберите время для автопубликации:"
	msgNoSlotsFilled     = "❌ Нет запланированных публикаций"

	msgEnterPaymentAmount = "Введите сумму на которую хотите пополнить баланс."
	msgShopPrompt         = "Выберите что покупаем:"
	msgPaymentNotFound    = "Ваш платеж не найден, попробуйте позже"

	msgStopWordsPrompt = "📝 Введите одно или несколько стоп-слов через запятую:"
	msgStopWordsEmpty  = "📝 Список стоп-слов пуст"
	msgStopWordsWiped  = "🗑️ Список стоп-слов очищен"

	btnBack         = "◀️ Назад"
	btnStartOver    = "◀️ Начать заново"
	btnHome         = "🏠 Главная"
	btnShop         = "🛒 Магазин"
	btnTopUp        = "🛒 Пополнить баланс"
	btnCreatePost   = "Создать публикацию"
	btnEdit         = "✏️ Редактировать"
	btnContinue     = "✅ Продолжить"
	btnPublish      = "✅ Опубликовать"
	btnPublishNow   = "📤 Опубликовать сразу"
	btnDelayed      = "⏰ Отложенная публикация"
	btnAutopost     = "🔄 Автопостинг"
	btnRemoveSlot   = "🗑️ Убрать с автопубликации"
	btnRetryInput   = "✏️ Внести изменения"
	btnCancelDated  = "❌ Отменить"
	btnGoToPayment  = "💳 Перейти к оплате"
	btnEditQuantity = "Редактировать количество"
)

// weekdayAccusative renders a weekday the way "опубликуется в ..." reads.
var weekdayAccusative = map[time.Weekday]string{
	time.Monday:    "в понедельник",
	time.Tuesday:   "во вторник",
	time.Wednesday: "в среду",
	time.Thursday:  "в четверг",
	time.Friday:    "в пятницу",
	time.Saturday:  "в субботу",
	time.Sunday:    "в воскресенье",
}

// weekdayEvery renders a weekday for the "каждый ..." confirmation.
var weekdayEvery = map[time.Weekday]string{
	time.Monday:    "каждый понедельник",
	time.Tuesday:   "каждый вторник",
	time.Wednesday: "каждую среду",
	time.Thursday:  "каждый четверг",
	time.Friday:    "каждую пятницу",
	time.Saturday:  "каждую субботу",
	time.Sunday:    "каждое воскресенье",
}

var weekdayButtons = []struct {
	Label   string
	Weekday time.Weekday
}{
	{"Понедельник", time.Monday},
	{"Вторник", time.Tuesday},
	{"Среда", time.Wednesday},
	{"Четверг", time.Thursday},
	{"Пятница", time.Friday},
	{"Суббота", time.Saturday},
	{"Воскресенье", time.Sunday},
}

func mainMenu() Menu {
	return Menu{
		{{Label: "📢 Размещение рекламы", Action: ActionMenuAds}},
		{{Label: "💼 Размещение объявлений о работе", Action: ActionMenuJobs}},
		{
			{Label: "💰 Баланс", Action: ActionMenuBalance},
			{Label: btnShop, Action: ActionMenuShop},
		},
	}
}

func adminMenu() Menu {
	return Menu{
		{{Label: "Проверить список стоп слов", Action: ActionAdminStopWordsList}},
		{{Label: "Добавить стоп слова", Action: ActionAdminStopWordsAdd}},
		{{Label: "Очистить список стоп слов", Action: ActionAdminStopWordsClear}},
		{{Label: btnCreatePost, Action: ActionAdminCreatePub}},
	}
}

func firmTypeMenu() Menu {
	return Menu{
		{{Label: string(domain.FirmIP), Action: ActionFirmTypePrefix + string(domain.FirmIP)}},
		{{Label: string(domain.FirmPhysical), Action: ActionFirmTypePrefix + string(domain.FirmPhysical)}},
		{{Label: string(domain.FirmLegal), Action: ActionFirmTypePrefix + string(domain.FirmLegal)}},
		{{Label: btnBack, Action: ActionMainMenu}},
	}
}

func jobKindMenu() Menu {
	return Menu{
		{{Label: "👥 Поиск сотрудника", Action: ActionJobSearchEmployee}},
		{{Label: "💼 Поиск работы", Action: ActionJobSearchWork}},
		{{Label: btnBack, Action: ActionMainMenu}},
	}
}

func startOverMenu() Menu {
	return Menu{{{Label: btnStartOver, Action: ActionBackToFirmType}}}
}

func homeMenu() Menu {
	return Menu{{{Label: btnHome, Action: ActionMainMenu}}}
}

func reviewMenu() Menu {
	return Menu{
		{{Label: btnEdit, Action: ActionBackToFirmType}},
		{{Label: btnContinue, Action: ActionReviewPublication}},
	}
}

func publicationOptionsMenu() Menu {
	return Menu{
		{{Label: btnPublishNow, Action: ActionPublishImmediately}},
		{{Label: btnDelayed, Action: ActionDelayedPublication}},
		{{Label: btnAutopost, Action: ActionAutoPosting}},
		{{Label: btnHome, Action: ActionMainMenu}},
	}
}

func frequencyMenu() Menu {
	return Menu{
		{{Label: "Раз в сутки", Action: ActionFrequencyDaily}},
		{{Label: "Раз в неделю", Action: ActionFrequencyWeekly}},
		{{Label: btnBack, Action: ActionReviewPublication}},
	}
}

func weekdayMenu() Menu {
	menu := make(Menu, 0, len(weekdayButtons)+1)
	for _, wd := range weekdayButtons {
		menu = append(menu, []Button{{
			Label:  wd.Label,
			Action: fmt.Sprintf("%s%d", ActionWeekdayPrefix, int(wd.Weekday)),
		}})
	}
	menu = append(menu, []Button{{Label: btnBack, Action: ActionAutoPosting}})
	return menu
}

func shopMenu() Menu {
	return Menu{
		{{Label: "📢 Размещение рекламы", Action: ActionShopAds}},
		{{Label: "💼 Размещение объявлений о работе", Action: ActionShopJobs}},
		{{Label: btnBack, Action: ActionMainMenu}},
	}
}

// pubTypeNominative names the publication kind in success notices.
func pubTypeNominative(t domain.PublicationType) string {
	if t.IsJob() {
		return "объявление о работе"
	}
	return "рекламное объявление"
}

// pubTypePhrase completes "должно публиковаться ..." style sentences.
func pubTypePhrase(t domain.PublicationType) string {
	if t.IsJob() {
		return "должно публиковаться объявление о работе"
	}
	return "должно публиковаться рекламное объявление"
}

// pricingText renders the package price list shown in the shop and before
// the repetitions prompt.
func pricingText(t domain.PublicationType) string {
	var b strings.Builder

	unit := pricing.UnitPrice(t)
	if t.IsJob() {
		b.WriteString("Публикация объявлений на платной основе.\n")
	} else {
		b.WriteString("Публикация Рекламы на платной основе.\n")
	}
	fmt.Fprintf(&b, "1 размещение в группе - %d ₽\n\n", unit.Rubles())
	b.WriteString("Также есть возможность пакетного размещения с 20% скидкой:\n")

	table := pricing.Table(t)
	quantities := make([]int, 0, len(table))
	for q := range table {
		if q > 1 {
			quantities = append(quantities, q)
		}
	}
	sort.Ints(quantities)

	for _, q := range quantities {
		full := unit.Rubles() * int64(q)
		fmt.Fprintf(&b, "%d размещения - %d ₽ (вместо %d ₽)\n", q, table[q].Rubles(), full)
	}

	return strings.TrimRight(b.String(), "\n")
}
